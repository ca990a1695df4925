package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/sitemirror/internal/model"
)

// Job carries the state of one target through a pipeline.
type Job struct {
	// Target is the base URL as given by the user.
	Target string

	// Report is created by the mirror step and read by the final steps.
	Report *model.Report

	// RunID is the history ID assigned by the persist step, 0 if not saved.
	RunID int64

	// Steps lists the steps that completed without error, in order.
	Steps []string

	// Err is the error returned by Execute.
	Err error
}

// NewJob creates a job for target.
func NewJob(target string) *Job {
	return &Job{Target: target, Steps: make([]string, 0)}
}

// Summary returns the report snapshot, or a summary that only carries the
// target when the crawl never started.
func (j *Job) Summary() model.Summary {
	if j.Report == nil {
		return model.Summary{BaseURL: j.Target}
	}
	return j.Report.Summary()
}

// Step is one unit of work of a pipeline.
type Step interface {
	// Do runs the step. Per-URL problems belong in the report; an error
	// means the step itself could not do its job.
	Do(ctx context.Context, job *Job) error

	// Name is used in logs and in Job.Steps.
	Name() string
}

// Pipeline runs its steps in order, then its final steps.
type Pipeline struct {
	steps      []Step
	finalSteps []Step
	logger     *slog.Logger

	// continueOnError keeps running main steps after one fails.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps executing main steps after a failure.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:      make([]Step, 0),
		finalSteps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a main step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends several main steps.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// AddFinalSteps appends steps that always run after the main steps, also
// when ctx was cancelled or a main step failed. They receive a context
// that is never cancelled.
func (p *Pipeline) AddFinalSteps(steps ...Step) {
	p.finalSteps = append(p.finalSteps, steps...)
}

// Execute runs the pipeline for job. The returned error joins every step
// error and, if the run was cut short, the context error.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	var errs []error

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "target", job.Target, "reason", err)
			errs = append(errs, err)
			break
		}
		if err := p.run(ctx, step, job); err != nil {
			errs = append(errs, err)
			if !p.continueOnError {
				break
			}
		}
	}

	finalCtx := context.WithoutCancel(ctx)
	for _, step := range p.finalSteps {
		if err := p.run(finalCtx, step, job); err != nil {
			errs = append(errs, err)
		}
	}

	job.Err = errors.Join(errs...)
	return job.Err
}

func (p *Pipeline) run(ctx context.Context, step Step, job *Job) error {
	p.logger.Debug("executing step", "step", step.Name(), "target", job.Target)

	if err := step.Do(ctx, job); err != nil {
		level := slog.LevelError
		if errors.Is(err, context.Canceled) {
			level = slog.LevelWarn
		}
		p.logger.Log(ctx, level, "step failed", "step", step.Name(), "target", job.Target, "error", err)
		return err
	}

	job.Steps = append(job.Steps, step.Name())
	return nil
}

// StepCount returns the number of main and final steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps) + len(p.finalSteps)
}

// StepNames returns every step name in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, p.StepCount())
	for _, s := range p.steps {
		names = append(names, s.Name())
	}
	for _, s := range p.finalSteps {
		names = append(names, s.Name())
	}
	return names
}
