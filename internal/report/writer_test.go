package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitemirror/internal/model"
)

func testSummary() model.Summary {
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return model.Summary{
		BaseURL:    "https://example.com/",
		SitemapURL: "https://example.com/sitemap.xml",
		SeedCount:  2,
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Counts: model.Counts{
			SuccessPages:  2,
			FailedPages:   1,
			SuccessAssets: 1,
			FailedAssets:  0,
		},
		SuccessPages:  []string{"https://example.com/", "https://example.com/blog/"},
		FailedPages:   []string{"https://example.com/missing.html"},
		SuccessAssets: []string{"https://example.com/css/site.css?v=1&x=2"},
		FailedAssets:  []string{},
		Outcomes: []model.Outcome{
			{URL: "https://example.com/", Kind: model.KindPage, Result: model.ResultSuccess, StatusCode: 200},
		},
	}
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n, err := NewMarkdownWriter(&buf).Write(testSummary())
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n == 0 {
		t.Error("Write() reported zero bytes")
	}

	out := buf.String()
	for _, want := range []string{
		"# Crawl Report",
		"https://example.com/sitemap.xml",
		"## Successful Pages",
		"## Failed Pages",
		"## Successful Assets",
		"## Failed Assets",
		"Total Successful Pages",
		"- https://example.com/blog/",
		"- https://example.com/missing.html",
		"pie",
		"Completed with failures",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output is missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdownWriter_SitemapWarningAndInterrupt(t *testing.T) {
	t.Parallel()

	s := testSummary()
	s.SitemapWarning = "sitemap returned unexpected status: 404"
	s.Interrupted = true

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(s); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"404", "[!WARNING]", "[!CAUTION]", "Interrupted"} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdownWriter_SkippedPages(t *testing.T) {
	t.Parallel()

	s := testSummary()
	s.SkippedPages = 3

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(s); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"[!NOTE]", "3 discovered page(s) were not fetched"} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdownWriter_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(model.Summary{BaseURL: "https://example.com/"}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "pie") {
		t.Error("an empty crawl should not have a pie chart")
	}
	if !strings.Contains(out, "None.") {
		t.Errorf("empty sections should say None.:\n%s", out)
	}
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("pretty with outcomes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(testSummary()); err != nil {
			t.Fatal(err)
		}
		var got model.Summary
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.BaseURL != "https://example.com/" || got.Counts.FailedPages != 1 || len(got.Outcomes) != 1 {
			t.Errorf("decoded summary = %+v", got)
		}
		if !strings.Contains(buf.String(), "\n  \"base_url\"") {
			t.Error("expected two-space indentation")
		}
		if !strings.Contains(buf.String(), "?v=1&x=2") {
			t.Error("ampersands should not be HTML escaped")
		}
	})

	t.Run("compact without outcomes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithOutcomes(false)).Write(testSummary()); err != nil {
			t.Fatal(err)
		}
		if strings.Contains(buf.String(), "\"outcomes\"") {
			t.Error("outcomes should be omitted")
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("compact output should be a single line")
		}
	})
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("lists non-empty sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(testSummary()); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		for _, want := range []string{"CRAWL REPORT", "Base URL:  https://example.com/", "FAILED PAGES (1)", "[!] https://example.com/missing.html", "[+] https://example.com/blog/"} {
			if !strings.Contains(out, want) {
				t.Errorf("output is missing %q:\n%s", want, out)
			}
		}
		if strings.Contains(out, "FAILED ASSETS (0)") {
			t.Error("empty section should be hidden by default")
		}
	})

	t.Run("show empty and truncate", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithShowEmpty(true), WithMaxURLs(1)).Write(testSummary()); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		if !strings.Contains(out, "FAILED ASSETS (0)") || !strings.Contains(out, "  none") {
			t.Errorf("empty section missing:\n%s", out)
		}
		if !strings.Contains(out, "... and 1 more") {
			t.Errorf("truncation note missing:\n%s", out)
		}
	})
}

func TestWriteFailedPages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		urls []string
		want string
	}{
		{name: "nil is an empty array", urls: nil, want: "[]\n"},
		{
			name: "pretty printed",
			urls: []string{"https://example.com/a.html", "https://example.com/ü.html"},
			want: "[\n  \"https://example.com/a.html\",\n  \"https://example.com/ü.html\"\n]\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if _, err := WriteFailedPages(&buf, tt.urls); err != nil {
				t.Fatal(err)
			}
			if buf.String() != tt.want {
				t.Errorf("WriteFailedPages() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{format: "markdown", want: "*report.MarkdownWriter"},
		{format: "", want: "*report.MarkdownWriter"},
		{format: "json", want: "*report.JSONWriter"},
		{format: "text", want: "*report.SimpleWriter"},
		{format: "pdf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			w, err := New(tt.format, &bytes.Buffer{})
			if tt.wantErr {
				if err == nil {
					t.Error("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := typeName(w); got != tt.want {
				t.Errorf("New(%q) = %s, want %s", tt.format, got, tt.want)
			}
		})
	}
}

func typeName(w Writer) string {
	switch w.(type) {
	case *MarkdownWriter:
		return "*report.MarkdownWriter"
	case *JSONWriter:
		return "*report.JSONWriter"
	case *SimpleWriter:
		return "*report.SimpleWriter"
	default:
		return "unknown"
	}
}

type failingWriter struct{}

func (failingWriter) Write(model.Summary) (int, error) {
	return 0, errors.New("disk full")
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	mw := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b))
	n, err := mw.Write(testSummary())
	if err != nil {
		t.Fatal(err)
	}
	if n != a.Len()+b.Len() {
		t.Errorf("Write() = %d bytes, want %d", n, a.Len()+b.Len())
	}

	var c bytes.Buffer
	if _, err := NewMultiWriter(failingWriter{}, NewSimpleWriter(&c)).Write(testSummary()); err == nil {
		t.Error("expected the first error to be returned")
	}
	if c.Len() != 0 {
		t.Error("writers after a failure should not run")
	}
}
