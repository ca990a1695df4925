package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/nao1215/sitemirror/internal/model"
)

// JSONWriter renders the summary as a JSON document.
type JSONWriter struct {
	baseWriter

	indentPrefix string
	indentString string

	// outcomes includes the per-URL outcome list.
	outcomes bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent pretty-prints with the given prefix and indent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint indents with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithOutcomes controls whether every outcome is included. It is on by default.
func WithOutcomes(include bool) JSONWriterOption {
	return func(w *JSONWriter) {
		w.outcomes = include
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
		outcomes:   true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write renders summary as JSON followed by a newline.
func (w *JSONWriter) Write(summary model.Summary) (int, error) {
	if !w.outcomes {
		summary.Outcomes = nil
	}
	return writeJSON(w.output, summary, w.indentPrefix, w.indentString)
}

// WriteFailedPages writes urls as a pretty-printed JSON array of strings.
// An empty list is written as [] so the file is always valid JSON.
func WriteFailedPages(output io.Writer, urls []string) (int, error) {
	if urls == nil {
		urls = []string{}
	}
	return writeJSON(output, urls, "", "  ")
}

func writeJSON(output io.Writer, v any, prefix, indent string) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if prefix != "" || indent != "" {
		enc.SetIndent(prefix, indent)
	}
	if err := enc.Encode(v); err != nil {
		return 0, err
	}
	return output.Write(buf.Bytes())
}
