package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/sitemirror/internal/model"
)

const ruleWidth = 70

// SimpleWriter renders a plain text report for terminals and logs.
type SimpleWriter struct {
	baseWriter

	// showEmpty prints sections that have no URLs.
	showEmpty bool

	// maxURLs caps each section; 0 prints everything.
	maxURLs int
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty prints empty sections with a "none" line.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithMaxURLs limits how many URLs are listed per section.
func WithMaxURLs(n int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.maxURLs = n
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write renders summary as text.
func (w *SimpleWriter) Write(summary model.Summary) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", ruleWidth) + "\n")
	sb.WriteString("CRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth) + "\n\n")

	fmt.Fprintf(&sb, "Base URL:  %s\n", summary.BaseURL)
	if summary.SitemapURL != "" {
		fmt.Fprintf(&sb, "Sitemap:   %s\n", summary.SitemapURL)
	}
	if summary.SitemapWarning != "" {
		fmt.Fprintf(&sb, "Warning:   sitemap unusable, crawled from base URL (%s)\n", summary.SitemapWarning)
	}
	fmt.Fprintf(&sb, "Started:   %s\n", summary.StartedAt.Format(timeLayout))
	fmt.Fprintf(&sb, "Duration:  %s\n", summary.Elapsed().Round(time.Millisecond))
	fmt.Fprintf(&sb, "Status:    %s\n\n", statusText(summary))

	secs := sections(summary)
	for _, s := range secs {
		fmt.Fprintf(&sb, "  %-20s %d\n", "Total "+s.title()+":", s.count())
	}
	sb.WriteString("\n")

	for _, s := range secs {
		w.writeSection(&sb, s)
	}

	sb.WriteString(strings.Repeat("=", ruleWidth) + "\n")
	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, s section) {
	if s.count() == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", ruleWidth) + "\n")
	fmt.Fprintf(sb, "%s (%d)\n", strings.ToUpper(s.title()), s.count())
	sb.WriteString(strings.Repeat("-", ruleWidth) + "\n")

	if s.count() == 0 {
		sb.WriteString("  none\n\n")
		return
	}

	marker := "+"
	if s.result == model.ResultFailure {
		marker = "!"
	}
	urls := s.urls
	if w.maxURLs > 0 && len(urls) > w.maxURLs {
		urls = urls[:w.maxURLs]
	}
	for _, u := range urls {
		fmt.Fprintf(sb, "  [%s] %s\n", marker, u)
	}
	if hidden := s.count() - len(urls); hidden > 0 {
		fmt.Fprintf(sb, "  ... and %d more\n", hidden)
	}
	sb.WriteString("\n")
}
