package orchestrate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrAllUnitsFailed is returned when not a single work unit produced an
// artifact. Partial failure is reported per unit but is not an error.
var ErrAllUnitsFailed = errors.New("all work units failed")

// Runner executes work units in batches with bounded concurrency and
// inter-batch pacing.
type Runner struct {
	orch        *Orchestrator
	concurrency int
	poolSize    int
	batchPause  time.Duration
	logger      *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithConcurrency raises the concurrency ceiling. Defaults to 1; the
// effective ceiling never exceeds the credential pool size or the number of
// work units.
func WithConcurrency(c int) RunnerOption {
	return func(r *Runner) {
		if c > 0 {
			r.concurrency = c
		}
	}
}

// WithBatchPause sets the pause between batches.
func WithBatchPause(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.batchPause = d
	}
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner over one orchestrator.
func NewRunner(orch *Orchestrator, poolSize int, opts ...RunnerOption) *Runner {
	r := &Runner{
		orch:        orch,
		concurrency: 1,
		poolSize:    poolSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Summary aggregates a batch run.
type Summary struct {
	Succeeded int
	Failed    int
	Results   []Result
}

// Run executes all work units and collects results in work-unit order.
// One unit's failure never aborts its siblings; the returned error is
// non-nil only when every unit failed.
func (r *Runner) Run(ctx context.Context, units []WorkUnit) (Summary, error) {
	summary := Summary{Results: make([]Result, len(units))}
	if len(units) == 0 {
		return summary, nil
	}

	ceiling := r.concurrency
	if r.poolSize > 0 && ceiling > r.poolSize {
		ceiling = r.poolSize
	}
	if ceiling > len(units) {
		ceiling = len(units)
	}
	if ceiling < 1 {
		ceiling = 1
	}

	r.logger.Info("Starting batch",
		"units", len(units),
		"concurrency", ceiling,
		"pool_size", r.poolSize)

	for start := 0; start < len(units); start += ceiling {
		end := start + ceiling
		if end > len(units) {
			end = len(units)
		}

		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				summary.Results[i] = r.orch.Run(ctx, units[i])
				// Failures are recorded, never propagated to siblings
				return nil
			})
		}
		_ = g.Wait()

		if end < len(units) && r.batchPause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(r.batchPause):
			}
		}
	}

	for _, res := range summary.Results {
		if res.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}

	r.logger.Info("Batch finished",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed)

	if summary.Succeeded == 0 {
		return summary, ErrAllUnitsFailed
	}
	return summary, nil
}
