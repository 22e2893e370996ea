package worker

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Runner manages a set of workers, cancelling all on first error.
type Runner struct {
	workers []Worker
}

// NewRunner creates a Runner with the given workers. Nil workers are
// skipped so optional workers can be passed unconditionally.
func NewRunner(workers ...Worker) *Runner {
	r := &Runner{}
	for _, w := range workers {
		if w != nil {
			r.workers = append(r.workers, w)
		}
	}
	return r
}

// Run starts all workers in parallel. It blocks until all workers finish.
// If any worker returns a non-nil error, the context is cancelled and
// the first error is returned.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, w := range r.workers {
		slog.LogAttrs(ctx, slog.LevelInfo, "worker started", slog.String("type", workerName(w)))
		g.Go(func() error {
			return w.Run(ctx)
		})
	}
	return g.Wait()
}

func workerName(w Worker) string {
	if n, ok := w.(named); ok {
		return n.Name()
	}
	return "unknown"
}
