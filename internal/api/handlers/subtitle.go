package handlers

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// extractPath extracts and URL-decodes the wildcard path from chi router
func extractPath(r *http.Request) string {
	path := chi.URLParam(r, "*")
	decoded, err := url.PathUnescape(path)
	if err != nil {
		return path
	}
	decoded = strings.TrimPrefix(decoded, "/")
	decoded = strings.TrimSuffix(decoded, "/")
	return decoded
}

// SubtitleHandler serves finished SRT files from the output directory as
// downloads.
type SubtitleHandler struct {
	outputPath string
}

func NewSubtitleHandler(outputPath string) *SubtitleHandler {
	return &SubtitleHandler{outputPath: outputPath}
}

func (h *SubtitleHandler) ServeSubtitle(w http.ResponseWriter, r *http.Request) {
	name := extractPath(r)

	// Only flat .srt names; status records and temp files stay private.
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") ||
		strings.ToLower(filepath.Ext(name)) != ".srt" {
		jsonError(w, "subtitle file not found", http.StatusNotFound)
		return
	}

	f, err := os.Open(filepath.Join(h.outputPath, name))
	if err != nil {
		jsonError(w, "subtitle file not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		jsonError(w, "subtitle file not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/x-subrip; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeContent(w, r, name, info.ModTime(), f)
}
