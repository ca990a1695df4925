package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/sitemirror/internal/model"
)

// MarkdownWriter renders crawl_report.md: a summary table, a pie chart of
// the four buckets and every URL grouped by bucket.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write renders summary as GitHub flavored markdown.
func (w *MarkdownWriter) Write(summary model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeCounts(md, summary)
	for _, s := range sections(summary) {
		w.writeSection(md, s)
	}
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Generated by sitemirror*")

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary model.Summary) {
	md.H1("Crawl Report")
	md.PlainText("")

	rows := [][]string{{"Base URL", "`" + summary.BaseURL + "`"}}
	if summary.SitemapURL != "" {
		rows = append(rows, []string{"Sitemap", "`" + summary.SitemapURL + "`"})
	}
	rows = append(rows,
		[]string{"Started", summary.StartedAt.Format(timeLayout)},
		[]string{"Duration", summary.Elapsed().Round(time.Millisecond).String()},
		[]string{"Seeds", strconv.Itoa(summary.SeedCount)},
		[]string{"Status", statusText(summary)},
	)
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if summary.SitemapWarning != "" {
		md.Warningf("The sitemap could not be used, the crawl started from the base URL only: %s", summary.SitemapWarning)
		md.PlainText("")
	}
	if summary.SkippedPages > 0 {
		md.Notef("The page limit was reached. %d discovered page(s) were not fetched.", summary.SkippedPages)
		md.PlainText("")
	}
	if summary.Interrupted {
		md.Cautionf("The crawl was interrupted. %d URL(s) were attempted before it stopped.", summary.Counts.Total())
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeCounts(md *markdown.Markdown, summary model.Summary) {
	md.H2("Summary")
	md.PlainText("")

	secs := sections(summary)
	rows := make([][]string, 0, len(secs)+1)
	for _, s := range secs {
		rows = append(rows, []string{"Total " + s.title(), strconv.Itoa(s.count())})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(summary.Counts.Total()) + "**"})
	md.Table(markdown.TableSet{
		Header: []string{"Bucket", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if summary.Counts.Total() == 0 {
		md.Note("Nothing was fetched.")
		md.PlainText("")
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Fetch Results"),
		piechart.WithShowData(true),
	)
	for _, s := range secs {
		if s.count() > 0 {
			chart.LabelAndIntValue(s.title(), uint64(s.count()))
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")

	if failed := summary.Counts.FailedPages + summary.Counts.FailedAssets; failed > 0 {
		md.Importantf("%d URL(s) could not be mirrored. Failed pages are also listed in the failed pages JSON file.", failed)
	} else {
		md.Tip("Every discovered URL was mirrored.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeSection(md *markdown.Markdown, s section) {
	md.H2(s.title())
	md.PlainText("")
	if s.count() == 0 {
		md.PlainText("None.")
		md.PlainText("")
		return
	}
	md.BulletList(s.urls...)
	md.PlainText("")
}
