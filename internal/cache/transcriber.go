package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"github.com/video-stream/autosub/internal/subtitle/transcribe"
	"github.com/video-stream/autosub/internal/transcript"
)

// Transcriber serves repeat uploads from the cache and delegates the rest.
// Cache failures are logged and never fail a transcription.
type Transcriber struct {
	next   transcribe.Transcriber
	db     *DB
	logger *slog.Logger
}

// NewTranscriber wraps next with db.
func NewTranscriber(next transcribe.Transcriber, db *DB, logger *slog.Logger) *Transcriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcriber{next: next, db: db, logger: logger.With("component", "cache")}
}

func (t *Transcriber) Name() string {
	return t.next.Name() + "+cache"
}

func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) (*transcript.Result, error) {
	key := Key(audio)

	cached, found, err := t.db.Get(key)
	if err != nil {
		t.logger.Warn("cache lookup failed", "hash", key, "error", err)
	} else if found {
		t.logger.Info("cache hit", "hash", key, "transcript_id", cached.ID)
		return cached, nil
	}

	result, err := t.next.Transcribe(ctx, audio)
	if err != nil {
		return nil, err
	}
	if err := t.db.Put(key, result); err != nil {
		t.logger.Warn("cache store failed", "hash", key, "error", err)
	}
	return result, nil
}

// Key is the cache key for a media payload.
func Key(audio []byte) string {
	sum := sha256.Sum256(audio)
	return hex.EncodeToString(sum[:])
}
