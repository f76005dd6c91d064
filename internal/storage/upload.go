package storage

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// DefaultMaxUploadBytes is the upload size limit when none is configured.
const DefaultMaxUploadBytes = 50 << 20

var mediaExtensions = map[string]bool{
	".mp3": true, ".mp4": true, ".wav": true, ".avi": true, ".mov": true,
	".m4a": true, ".webm": true, ".ogg": true, ".aac": true, ".flac": true,
}

// ValidationError describes a rejected upload.
type ValidationError struct {
	Field    string
	Message  string
	TooLarge bool
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// IsMediaFile reports whether name has an accepted audio or video extension.
func IsMediaFile(name string) bool {
	return mediaExtensions[strings.ToLower(filepath.Ext(name))]
}

// CheckMedia validates an upload's file name and declared content type.
// Generic binary types are accepted only with a known extension.
func CheckMedia(name, contentType string) error {
	if !IsMediaFile(name) {
		return &ValidationError{Field: "file", Message: fmt.Sprintf("unsupported file type %q", filepath.Ext(name))}
	}
	if contentType == "" {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return &ValidationError{Field: "file", Message: "malformed content type"}
	}
	switch {
	case strings.HasPrefix(mediaType, "audio/"), strings.HasPrefix(mediaType, "video/"):
		return nil
	case mediaType == "application/octet-stream":
		return nil
	}
	return &ValidationError{Field: "file", Message: fmt.Sprintf("unsupported content type %q", mediaType)}
}

// Uploads stores accepted media under generated names.
type Uploads struct {
	dir      string
	maxBytes int64
}

// NewUploads creates an upload store in dir. maxBytes <= 0 selects the default.
func NewUploads(dir string, maxBytes int64) *Uploads {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Uploads{dir: dir, maxBytes: maxBytes}
}

// MaxBytes returns the size limit for a single upload.
func (u *Uploads) MaxBytes() int64 {
	return u.maxBytes
}

// Save validates and copies r into the upload directory as <uuid><ext> and
// returns the stored path. Nothing is left on disk when it fails.
func (u *Uploads) Save(name, contentType string, r io.Reader) (string, error) {
	if err := CheckMedia(name, contentType); err != nil {
		return "", err
	}

	path := filepath.Join(u.dir, uuid.NewString()+strings.ToLower(filepath.Ext(name)))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, u.maxBytes+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("store upload: %w", err)
	}
	if n > u.maxBytes {
		os.Remove(path)
		return "", u.TooLarge()
	}
	if n == 0 {
		os.Remove(path)
		return "", &ValidationError{Field: "file", Message: "file is empty"}
	}
	return path, nil
}

// TooLarge returns the error reported for an oversized upload.
func (u *Uploads) TooLarge() *ValidationError {
	return &ValidationError{
		Field:    "file",
		Message:  "file exceeds the " + humanize.IBytes(uint64(u.maxBytes)) + " limit",
		TooLarge: true,
	}
}
