package crawler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/nao1215/sitemirror/internal/urlkey"
)

// DefaultSitemapPath is where the sitemap is looked up, relative to the site root.
const DefaultSitemapPath = "/sitemap.xml"

// maxSitemapDocuments bounds how many documents a sitemap index may pull in.
const maxSitemapDocuments = 50

// SitemapReader reads page URLs from a sitemap, following sitemap indexes.
type SitemapReader struct {
	fetcher Fetcher
	norm    *urlkey.Normalizer
	timeout time.Duration
	logger  *slog.Logger
}

// NewSitemapReader creates a SitemapReader. Child sitemaps outside the host
// of norm are never fetched.
func NewSitemapReader(fetcher Fetcher, norm *urlkey.Normalizer, timeout time.Duration, logger *slog.Logger) *SitemapReader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SitemapReader{fetcher: fetcher, norm: norm, timeout: timeout, logger: logger}
}

// Read returns the <url><loc> entries of the sitemap at sitemapURL in
// document order.
//
// Failure to fetch or parse the root document is returned as an error.
// Child sitemaps listed by a <sitemapindex> are read breadth-first. A child
// on another host, or one that fails, is logged and skipped.
func (r *SitemapReader) Read(ctx context.Context, sitemapURL string) ([]string, error) {
	locs, children, err := r.readDocument(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{sitemapURL: true}
	queue := children
	fetched := 1
	for len(queue) > 0 && fetched < maxSitemapDocuments {
		child := queue[0]
		queue = queue[1:]
		if seen[child] {
			continue
		}
		seen[child] = true
		if !r.norm.IsInternal(child) {
			r.logger.Warn("skipping external child sitemap", "sitemap", child)
			continue
		}
		fetched++

		childLocs, grandchildren, err := r.readDocument(ctx, child)
		if err != nil {
			r.logger.Warn("skipping child sitemap", "sitemap", child, "error", err)
			continue
		}
		locs = append(locs, childLocs...)
		queue = append(queue, grandchildren...)
	}

	if len(locs) == 0 {
		return nil, ErrSitemapEmpty
	}
	return locs, nil
}

func (r *SitemapReader) readDocument(ctx context.Context, sitemapURL string) (locs, children []string, err error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	resp, err := r.fetcher.Get(ctx, sitemapURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch sitemap: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, nil, fmt.Errorf("%w: %d", ErrSitemapStatus, resp.StatusCode)
	}
	return parseSitemap(resp.Body)
}

// parseSitemap extracts page locations (<url><loc>) and child sitemap
// locations (<sitemap><loc>) from a sitemaps.org document.
func parseSitemap(body []byte) (locs, children []string, err error) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSitemapParse, err)
	}

	for _, n := range xmlquery.Find(doc, "//url/loc") {
		if loc := strings.TrimSpace(n.InnerText()); loc != "" {
			locs = append(locs, loc)
		}
	}
	for _, n := range xmlquery.Find(doc, "//sitemap/loc") {
		if loc := strings.TrimSpace(n.InnerText()); loc != "" {
			children = append(children, loc)
		}
	}
	return locs, children, nil
}
