// Package refine rewrites SRT text through a language model on a best-effort
// basis. Failures never propagate: the raw SRT is passed through instead.
package refine

import (
	"context"
	"errors"
	"log/slog"
)

// ErrDisabled is reported when no completer is configured.
var ErrDisabled = errors.New("refinement disabled: no api key configured")

// Result is the outcome of a refinement attempt. Refined is false when Text is
// the raw input passed through; Err then holds the cause for logging.
type Result struct {
	Text    string
	Refined bool
	Err     error
}

// Refiner wraps a Completer with the pass-through fallback policy.
type Refiner struct {
	completer Completer
	logger    *slog.Logger
}

// NewRefiner creates a refiner. A nil completer disables refinement.
func NewRefiner(completer Completer, logger *slog.Logger) *Refiner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refiner{completer: completer, logger: logger.With("component", "refine")}
}

// Refine returns the model's rewrite of rawSRT verbatim, or rawSRT unchanged
// if the call fails for any reason.
func (r *Refiner) Refine(ctx context.Context, rawSRT string) Result {
	if r == nil || r.completer == nil {
		return Result{Text: rawSRT, Err: ErrDisabled}
	}
	if rawSRT == "" {
		return Result{Text: rawSRT, Err: errors.New("refinement skipped: empty subtitles")}
	}

	improved, err := r.completer.Complete(ctx, BuildPrompt(rawSRT))
	if err != nil {
		r.logger.Warn("refinement failed, keeping raw subtitles", "engine", r.completer.Name(), "error", err)
		return Result{Text: rawSRT, Err: err}
	}
	return Result{Text: improved, Refined: true}
}
