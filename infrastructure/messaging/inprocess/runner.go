// Package inprocess runs continuation tasks on a goroutine in the same
// process. Used by the local dev server, where there is no event bus and
// the process is expected to stay alive long enough to finish.
package inprocess

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"muse-backend/application/ports"
)

// Continuer consumes continuation tasks; implemented by the dispatcher
type Continuer interface {
	Continue(ctx context.Context, task ports.ContinuationTask)
}

// Runner implements ports.TaskQueue by running tasks directly
type Runner struct {
	continuer Continuer
	logger    *zap.Logger
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewRunner creates a runner. timeout bounds each background task.
func NewRunner(continuer Continuer, logger *zap.Logger, timeout time.Duration) *Runner {
	return &Runner{continuer: continuer, logger: logger, timeout: timeout}
}

// Enqueue starts the task on its own goroutine, detached from the request
// context so the reply can be sent while the task runs.
func (r *Runner) Enqueue(_ context.Context, task ports.ContinuationTask) error {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		r.continuer.Continue(ctx, task)
	}()
	return nil
}

// Wait blocks until all running tasks finish. Used on shutdown and in tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}
