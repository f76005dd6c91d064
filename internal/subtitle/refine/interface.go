package refine

import "context"

// Completer sends a single user prompt to a text-generation model.
type Completer interface {
	// Complete returns the model's text response for prompt
	Complete(ctx context.Context, prompt string) (string, error)
	// Name returns the engine name
	Name() string
}
