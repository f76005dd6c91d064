package transcribe

import (
	"context"

	"github.com/video-stream/autosub/internal/transcript"
)

// Transcriber is the common interface for speech-to-text engines.
type Transcriber interface {
	// Transcribe converts raw media bytes into a time-aligned transcript.
	Transcribe(ctx context.Context, audio []byte) (*transcript.Result, error)
	// Name returns the engine name
	Name() string
}
