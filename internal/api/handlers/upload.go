package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/video-stream/autosub/internal/job"
	"github.com/video-stream/autosub/internal/storage"
)

// Launcher starts a job in the background.
type Launcher interface {
	Launch(task job.Task)
}

type UploadHandler struct {
	uploads  *storage.Uploads
	launcher Launcher
	logger   *slog.Logger
}

func NewUploadHandler(uploads *storage.Uploads, launcher Launcher, logger *slog.Logger) *UploadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadHandler{uploads: uploads, launcher: launcher, logger: logger}
}

// Upload stores the multipart "file" field and starts processing it. The
// response is sent before any transcription work happens.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	reader, err := r.MultipartReader()
	if err != nil {
		jsonError(w, "expected multipart/form-data with a file field", http.StatusBadRequest)
		return
	}

	var path, originalName string
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			h.writeUploadError(w, err)
			return
		}
		if part.FormName() != "file" || part.FileName() == "" {
			part.Close()
			continue
		}
		originalName = filepath.Base(part.FileName())
		path, err = h.uploads.Save(originalName, part.Header.Get("Content-Type"), part)
		part.Close()
		if err != nil {
			h.writeUploadError(w, err)
			return
		}
		break
	}
	if path == "" {
		jsonError(w, "no file uploaded", http.StatusBadRequest)
		return
	}

	id := job.IDFromPath(path)
	h.logger.Info("upload accepted", "job_id", id, "file", originalName)
	h.launcher.Launch(job.Task{ID: id, MediaPath: path, OriginalName: originalName})

	jsonResponse(w, map[string]string{
		"jobId":     id,
		"status":    string(job.StatusProcessing),
		"statusUrl": "/api/status/" + id,
	}, http.StatusAccepted)
}

func (h *UploadHandler) writeUploadError(w http.ResponseWriter, err error) {
	var verr *storage.ValidationError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &verr):
		status := http.StatusBadRequest
		if verr.TooLarge {
			status = http.StatusRequestEntityTooLarge
		}
		jsonError(w, verr.Message, status)
	case errors.As(err, &maxErr):
		jsonError(w, h.uploads.TooLarge().Message, http.StatusRequestEntityTooLarge)
	default:
		h.logger.Warn("upload failed", "error", err)
		jsonError(w, "failed to read upload", http.StatusBadRequest)
	}
}
