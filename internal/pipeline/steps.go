package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/sitemirror/internal/crawler"
	"github.com/nao1215/sitemirror/internal/model"
	"github.com/nao1215/sitemirror/internal/report"
)

// ErrNoReport is returned by final steps when the mirror step never produced a report.
var ErrNoReport = errors.New("no crawl report: the mirror step did not run")

// MirrorStep crawls the target into its output directory.
type MirrorStep struct {
	spider *crawler.Spider
}

// NewMirrorStep creates a MirrorStep that runs spider.
func NewMirrorStep(spider *crawler.Spider) *MirrorStep {
	return &MirrorStep{spider: spider}
}

// Name returns "mirror".
func (s *MirrorStep) Name() string {
	return "mirror"
}

// Do runs the crawl. The report is attached to job before crawling so that
// an interrupted run still has its partial outcomes.
func (s *MirrorStep) Do(ctx context.Context, job *Job) error {
	job.Report = model.NewReport(s.spider.Base().String())
	return s.spider.Run(ctx, job.Report)
}

// ReportStep writes the crawl report file.
type ReportStep struct {
	path   string
	format string
}

// NewReportStep writes a report in format to path.
func NewReportStep(path, format string) *ReportStep {
	return &ReportStep{path: path, format: format}
}

// Name returns "report".
func (s *ReportStep) Name() string {
	return "report"
}

// Do writes the report.
func (s *ReportStep) Do(_ context.Context, job *Job) error {
	if job.Report == nil {
		return ErrNoReport
	}
	return writeFile(s.path, func(w io.Writer) error {
		rw, err := report.New(s.format, w)
		if err != nil {
			return err
		}
		_, err = rw.Write(job.Report.Summary())
		return err
	})
}

// FailedPagesStep writes the JSON list of pages that could not be mirrored.
type FailedPagesStep struct {
	path string
}

// NewFailedPagesStep writes the failed pages to path.
func NewFailedPagesStep(path string) *FailedPagesStep {
	return &FailedPagesStep{path: path}
}

// Name returns "failed-pages".
func (s *FailedPagesStep) Name() string {
	return "failed-pages"
}

// Do writes the file, an empty JSON array when nothing failed.
func (s *FailedPagesStep) Do(_ context.Context, job *Job) error {
	if job.Report == nil {
		return ErrNoReport
	}
	return writeFile(s.path, func(w io.Writer) error {
		_, err := report.WriteFailedPages(w, job.Report.FailedPages())
		return err
	})
}

// RunSaver stores a finished run and returns its ID.
type RunSaver interface {
	SaveRun(ctx context.Context, summary model.Summary) (int64, error)
}

// PersistStep records the run in the history database.
type PersistStep struct {
	saver  RunSaver
	logger *slog.Logger
}

// NewPersistStep saves runs with saver.
func NewPersistStep(saver RunSaver, logger *slog.Logger) *PersistStep {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PersistStep{saver: saver, logger: logger}
}

// Name returns "persist".
func (s *PersistStep) Name() string {
	return "persist"
}

// Do saves the summary and sets job.RunID.
func (s *PersistStep) Do(ctx context.Context, job *Job) error {
	if job.Report == nil {
		return ErrNoReport
	}
	id, err := s.saver.SaveRun(ctx, job.Report.Summary())
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	job.RunID = id
	s.logger.Debug("run saved", "target", job.Target, "run_id", id)
	return nil
}

// writeFile creates path with 0600 permissions, creating parent
// directories as needed, and fills it with write.
func writeFile(path string, write func(io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // path comes from the user's flags
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
