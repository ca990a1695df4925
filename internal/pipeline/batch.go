package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency is the number of sites mirrored at once.
const DefaultBatchConcurrency = 2

// Factory builds the pipeline for one target.
type Factory func(target string) (*Pipeline, error)

// BatchProcessor mirrors several targets concurrently, each with its own
// pipeline.
type BatchProcessor struct {
	factory     Factory
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets the logger used for batch-level messages.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets how many targets run at once. Non-positive values
// keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor. factory is called once per
// target so that no crawl state is shared between sites.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch runs every target and returns one job per target, in input
// order. Failures stay in Job.Err. The returned error is ctx.Err() when
// the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*Job, error) {
	jobs := make([]*Job, len(targets))
	err := bp.ProcessBatchWithCallback(ctx, targets, func(job *Job, index int) {
		jobs[index] = job
	})
	return jobs, err
}

// ProcessBatchWithCallback runs every target and calls callback as each
// job completes. callback runs on the worker goroutine and must be safe
// for concurrent use if it touches shared state. Targets that never start
// because ctx was cancelled are reported with Err set to ctx.Err().
func (bp *BatchProcessor) ProcessBatchWithCallback(ctx context.Context, targets []string, callback func(job *Job, index int)) error {
	bp.logger.Info("starting batch", "targets", len(targets), "concurrency", bp.concurrency)
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			job := NewJob(target)
			defer callback(job, i)

			if err := ctx.Err(); err != nil {
				job.Err = err
				return nil
			}

			bp.logger.Info("mirroring site", "target", target, "index", i+1, "total", len(targets))

			p, err := bp.factory(target)
			if err != nil {
				job.Err = fmt.Errorf("failed to build pipeline for %s: %w", target, err)
				bp.logger.Error("site skipped", "target", target, "error", err)
				return nil
			}
			if err := p.Execute(ctx, job); err != nil {
				bp.logger.Warn("site finished with errors", "target", target, "error", err)
				return nil
			}
			bp.logger.Info("site finished", "target", target)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // workers never return errors

	bp.logger.Info("batch complete", "targets", len(targets), "elapsed", time.Since(start))
	return ctx.Err()
}
