package report

import (
	"fmt"
	"io"

	"github.com/nao1215/sitemirror/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Writer renders a crawl summary.
type Writer interface {
	// Write renders summary and returns the number of bytes written.
	Write(summary model.Summary) (int, error)
}

// Format names accepted by New.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatText     = "text"
)

// New returns the Writer for format, writing to output.
func New(format string, output io.Writer) (Writer, error) {
	switch format {
	case FormatMarkdown, "md", "":
		return NewMarkdownWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatText, "txt":
		return NewSimpleWriter(output), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// MultiWriter writes the same summary to several Writers, e.g. a file and stdout.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write stops at the first failing writer.
func (m *MultiWriter) Write(summary model.Summary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// section is one of the four URL lists of a report.
type section struct {
	kind   model.Kind
	result model.Result
	urls   []string
}

// title returns e.g. "Successful Pages" or "Failed Assets".
func (s section) title() string {
	verb := "failed"
	if s.result == model.ResultSuccess {
		verb = "successful"
	}
	// a Caser is stateful and reports are written from several goroutines
	return cases.Title(language.English).String(verb + " " + s.kind.String() + "s")
}

func sections(summary model.Summary) []section {
	return []section{
		{kind: model.KindPage, result: model.ResultSuccess, urls: summary.SuccessPages},
		{kind: model.KindPage, result: model.ResultFailure, urls: summary.FailedPages},
		{kind: model.KindAsset, result: model.ResultSuccess, urls: summary.SuccessAssets},
		{kind: model.KindAsset, result: model.ResultFailure, urls: summary.FailedAssets},
	}
}

func (s section) count() int {
	return len(s.urls)
}

const timeLayout = "2006-01-02 15:04:05 MST"

func statusText(summary model.Summary) string {
	switch {
	case summary.Interrupted:
		return "Interrupted (partial mirror)"
	case summary.Counts.FailedPages+summary.Counts.FailedAssets > 0:
		return "Completed with failures"
	default:
		return "Complete"
	}
}
