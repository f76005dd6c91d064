package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/video-stream/autosub/internal/job"
)

type JobHandler struct {
	store  *job.Store
	logger *slog.Logger
}

func NewJobHandler(store *job.Store, logger *slog.Logger) *JobHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobHandler{store: store, logger: logger}
}

// GetStatus returns the stored status file verbatim, or a processing status
// when the job has not finished yet.
func (h *JobHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobId")

	data, found, err := h.store.Raw(id)
	if errors.Is(err, job.ErrInvalidID) {
		jsonError(w, "invalid job ID", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Error("read job status", "job_id", id, "error", err)
		jsonError(w, "failed to read job status", http.StatusInternalServerError)
		return
	}
	if !found {
		jsonResponse(w, map[string]string{"status": string(job.StatusProcessing)}, http.StatusOK)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}
