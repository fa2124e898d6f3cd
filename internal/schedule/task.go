package schedule

import "context"

// Task is a long running job. Run blocks until the task finishes or ctx is
// cancelled.
type Task interface {
	Run(ctx context.Context) error
	Name() string
}

// Stoppable is a Task that can also be asked to finish on its own terms.
type Stoppable interface {
	Task
	Stop()
	Done() <-chan struct{}
}
