package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Runner runs every task on its own goroutine under a shared context that is
// only cancelled by Close, so request scoped contexts never end a task.
type Runner struct {
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Go starts task in the background. Errors other than cancellation are logged
// with the task name and any extra attributes.
func (r *Runner) Go(task Task, args ...any) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := task.Run(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("task exited", append([]any{"task", task.Name(), "error", err}, args...)...)
		}
	}()
}

// Wait blocks until every task returned or ctx is done.
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

// Close cancels the shared context. Tasks still running see ctx.Done.
func (r *Runner) Close() {
	r.cancel()
}
