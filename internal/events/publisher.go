// Package events announces finished jobs to external consumers.
package events

import (
	"context"
	"time"
)

// Event describes a job reaching a terminal state.
type Event struct {
	JobID   string    `json:"job_id"`
	Status  string    `json:"status"`
	Refined bool      `json:"refined,omitempty"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher delivers job events. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
