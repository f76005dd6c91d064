package job

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/video-stream/autosub/internal/events"
)

// Task is one accepted upload waiting to be processed.
type Task struct {
	ID           string
	MediaPath    string
	OriginalName string
}

// Outcome is what a successful handler produced.
type Outcome struct {
	RawPath      string
	ImprovedPath string
	Refined      bool
}

// Handler processes a task end to end.
type Handler func(ctx context.Context, task Task) (Outcome, error)

// Runner starts one goroutine per task and records its terminal status.
// There is no queue and no concurrency cap; started jobs cannot be cancelled.
type Runner struct {
	store     *Store
	handler   Handler
	publisher events.Publisher
	baseURL   string
	logger    *slog.Logger

	ctx context.Context
	wg  sync.WaitGroup
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithPublisher announces terminal states through p.
func WithPublisher(p events.Publisher) RunnerOption {
	return func(r *Runner) {
		if p != nil {
			r.publisher = p
		}
	}
}

// WithArtifactBaseURL sets the URL prefix artifact file names are joined to.
func WithArtifactBaseURL(base string) RunnerOption {
	return func(r *Runner) {
		r.baseURL = strings.TrimRight(base, "/")
	}
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a runner writing records to store.
func NewRunner(store *Store, handler Handler, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:     store,
		handler:   handler,
		publisher: events.Nop{},
		baseURL:   "/output",
		logger:    slog.Default(),
		// Jobs outlive the request that started them.
		ctx: context.Background(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "job")
	return r
}

// Launch processes task in the background and returns immediately.
func (r *Runner) Launch(task Task) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.Run(task)
	}()
}

// Run processes task synchronously and returns the persisted record.
func (r *Runner) Run(task Task) Record {
	start := time.Now()
	r.logger.Info("job started", "job_id", task.ID, "file", task.OriginalName)

	out, err := r.invoke(task)

	var rec Record
	if err != nil {
		rec = Failed(err.Error())
		r.logger.Error("job failed", "job_id", task.ID, "error", err, "elapsed", time.Since(start))
	} else {
		rec = Completed(r.artifactURL(out.RawPath), r.artifactURL(out.ImprovedPath), task.OriginalName, out.Refined)
		r.logger.Info("job completed", "job_id", task.ID, "refined", out.Refined, "elapsed", time.Since(start))
	}

	if err := r.store.Save(task.ID, rec); err != nil {
		r.logger.Error("save job status", "job_id", task.ID, "error", err)
		return rec
	}

	ev := events.Event{JobID: task.ID, Status: string(rec.Status), Error: rec.Error, At: time.Now().UTC()}
	if rec.Refined != nil {
		ev.Refined = *rec.Refined
	}
	if err := r.publisher.Publish(r.ctx, ev); err != nil {
		r.logger.Warn("publish job event", "job_id", task.ID, "error", err)
	}
	return rec
}

// invoke calls the handler, turning a panic into a job failure.
func (r *Runner) invoke(task Task) (out Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("internal error: %v", p)
		}
	}()
	return r.handler(r.ctx, task)
}

// Wait blocks until every launched job has finished or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) artifactURL(path string) string {
	return r.baseURL + "/" + filepath.Base(path)
}
