package job

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
)

// Status represents the externally visible state of a job
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Record is the persisted status of a finished job. A job with no record yet
// is still processing.
type Record struct {
	Status           Status `json:"status"`
	Raw              string `json:"raw,omitempty"`
	Improved         string `json:"improved,omitempty"`
	OriginalFileName string `json:"originalFileName,omitempty"`
	Refined          *bool  `json:"refined,omitempty"`
	Error            string `json:"error,omitempty"`
}

// Completed builds the record of a successful job.
func Completed(rawURL, improvedURL, originalName string, refined bool) Record {
	return Record{
		Status:           StatusCompleted,
		Raw:              rawURL,
		Improved:         improvedURL,
		OriginalFileName: originalName,
		Refined:          &refined,
	}
}

// Failed builds the record of a failed job.
func Failed(msg string) Record {
	return Record{Status: StatusError, Error: msg}
}

// ErrInvalidID is returned for job ids that could escape the output directory.
var ErrInvalidID = errors.New("invalid job id")

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateID reports whether id is safe to use as a file name stem.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return ErrInvalidID
	}
	return nil
}

// IDFromPath derives a job id from a stored upload: its base name without extension.
func IDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// RawSRTName is the file name of a job's unrefined subtitles.
func RawSRTName(id string) string {
	return id + "_raw.srt"
}

// SRTName is the file name of a job's final subtitles.
func SRTName(id string) string {
	return id + ".srt"
}

// StatusName is the file name of a job's status record.
func StatusName(id string) string {
	return id + ".json"
}
