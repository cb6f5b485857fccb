package server

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const taskTimeout = 30 * time.Second

// TaskRunner runs fire-and-forget work outside the request lifecycle
type TaskRunner struct {
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewTaskRunner creates a TaskRunner
func NewTaskRunner(logger *slog.Logger) *TaskRunner {
	return &TaskRunner{logger: logger}
}

// Go runs fn in the background with its own 30 second deadline, detached
// from the request context. Failures are logged.
func (t *TaskRunner) Go(name string, fn func(ctx context.Context) error) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				t.logger.Error("background task panicked", "task", name, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			t.logger.Warn("background task failed", "task", name, "error", err)
		}
	}()
}

// Wait blocks until every started task has returned
func (t *TaskRunner) Wait() {
	t.wg.Wait()
}
