package pipeline

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/nao1215/sitemirror/internal/model"
)

type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, job *Job) error
	callCount int
}

func (m *mockStep) Do(ctx context.Context, job *Job) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, job)
	}
	return nil
}

func (m *mockStep) Name() string {
	return m.name
}

func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))
		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

func TestPipelineStepNames(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddStep(&mockStep{name: "mirror"})
	p.AddFinalSteps(&mockStep{name: "report"}, &mockStep{name: "persist"})
	p.AddSteps(&mockStep{name: "extra"})

	want := []string{"mirror", "extra", "report", "persist"}
	if got := p.StepNames(); !slices.Equal(got, want) {
		t.Errorf("StepNames() = %v, want %v", got, want)
	}
	if p.StepCount() != 4 {
		t.Errorf("StepCount() = %d, want 4", p.StepCount())
	}
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")

	t.Run("runs steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		record := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(context.Context, *Job) error {
				order = append(order, name)
				return nil
			}}
		}

		p := New()
		p.AddSteps(record("a"), record("b"))
		p.AddFinalSteps(record("final"))

		job := NewJob("https://example.com/")
		if err := p.Execute(context.Background(), job); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}

		want := []string{"a", "b", "final"}
		if !slices.Equal(order, want) {
			t.Errorf("order = %v, want %v", order, want)
		}
		if !slices.Equal(job.Steps, want) {
			t.Errorf("job.Steps = %v, want %v", job.Steps, want)
		}
		if job.Err != nil {
			t.Errorf("job.Err = %v, want nil", job.Err)
		}
	})

	t.Run("stops main steps on error but runs final steps", func(t *testing.T) {
		t.Parallel()

		failing := &mockStep{name: "failing", doFunc: func(context.Context, *Job) error { return errBoom }}
		skipped := &mockStep{name: "skipped"}
		final := &mockStep{name: "final"}

		p := New()
		p.AddSteps(failing, skipped)
		p.AddFinalSteps(final)

		job := NewJob("https://example.com/")
		err := p.Execute(context.Background(), job)
		if !errors.Is(err, errBoom) {
			t.Fatalf("Execute() error = %v, want %v", err, errBoom)
		}
		if skipped.callCount != 0 {
			t.Error("step after failure should not run")
		}
		if final.callCount != 1 {
			t.Error("final step should run after failure")
		}
		if !errors.Is(job.Err, errBoom) {
			t.Errorf("job.Err = %v, want %v", job.Err, errBoom)
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		failing := &mockStep{name: "failing", doFunc: func(context.Context, *Job) error { return errBoom }}
		next := &mockStep{name: "next"}

		p := New(WithContinueOnError(true))
		p.AddSteps(failing, next)

		job := NewJob("https://example.com/")
		if err := p.Execute(context.Background(), job); !errors.Is(err, errBoom) {
			t.Fatalf("Execute() error = %v, want %v", err, errBoom)
		}
		if next.callCount != 1 {
			t.Error("expected next step to run")
		}
		if !slices.Equal(job.Steps, []string{"next"}) {
			t.Errorf("job.Steps = %v", job.Steps)
		}
	})

	t.Run("joins final step errors", func(t *testing.T) {
		t.Parallel()

		errA := errors.New("a")
		errB := errors.New("b")

		p := New()
		p.AddFinalSteps(
			&mockStep{name: "a", doFunc: func(context.Context, *Job) error { return errA }},
			&mockStep{name: "b", doFunc: func(context.Context, *Job) error { return errB }},
		)

		err := p.Execute(context.Background(), NewJob("https://example.com/"))
		if !errors.Is(err, errA) || !errors.Is(err, errB) {
			t.Errorf("Execute() error = %v, want both errors", err)
		}
	})

	t.Run("cancelled context skips main steps but not final steps", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		main := &mockStep{name: "main"}
		var finalCtxErr error
		final := &mockStep{name: "final", doFunc: func(ctx context.Context, _ *Job) error {
			finalCtxErr = ctx.Err()
			return nil
		}}

		p := New()
		p.AddStep(main)
		p.AddFinalSteps(final)

		err := p.Execute(ctx, NewJob("https://example.com/"))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Execute() error = %v, want context.Canceled", err)
		}
		if main.callCount != 0 {
			t.Error("main step should not run on a cancelled context")
		}
		if final.callCount != 1 {
			t.Error("final step should run on a cancelled context")
		}
		if finalCtxErr != nil {
			t.Errorf("final step context error = %v, want nil", finalCtxErr)
		}
	})

	t.Run("step sees cancellation that happens mid-run", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		first := &mockStep{name: "first", doFunc: func(context.Context, *Job) error {
			cancel()
			return nil
		}}
		second := &mockStep{name: "second"}

		p := New()
		p.AddSteps(first, second)

		if err := p.Execute(ctx, NewJob("https://example.com/")); !errors.Is(err, context.Canceled) {
			t.Errorf("Execute() error = %v, want context.Canceled", err)
		}
		if second.callCount != 0 {
			t.Error("second step should not run after cancellation")
		}
	})
}

func TestJobSummary(t *testing.T) {
	t.Parallel()

	t.Run("without report", func(t *testing.T) {
		t.Parallel()

		job := NewJob("https://example.com/")
		got := job.Summary()
		if got.BaseURL != "https://example.com/" {
			t.Errorf("BaseURL = %q", got.BaseURL)
		}
		if got.Counts.Total() != 0 {
			t.Errorf("Counts = %+v, want zero", got.Counts)
		}
	})

	t.Run("with report", func(t *testing.T) {
		t.Parallel()

		job := NewJob("https://example.com/")
		job.Report = model.NewReport("https://example.com/")
		job.Report.SetSeedCount(3)

		if got := job.Summary().SeedCount; got != 3 {
			t.Errorf("SeedCount = %d, want 3", got)
		}
	})
}
