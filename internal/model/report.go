package model

import (
	"slices"
	"sync"
	"time"
)

// Counts holds the size of each of the four report buckets.
type Counts struct {
	SuccessPages  int `json:"success_pages"`
	FailedPages   int `json:"failed_pages"`
	SuccessAssets int `json:"success_assets"`
	FailedAssets  int `json:"failed_assets"`
}

// Total returns the number of fetch attempts.
func (c Counts) Total() int {
	return c.SuccessPages + c.FailedPages + c.SuccessAssets + c.FailedAssets
}

// Report aggregates the outcomes of one crawl run.
//
// Workers call Record concurrently while the crawl is running. Once Finish
// is called the report is frozen: later Record calls are dropped and every
// accessor returns the final state.
type Report struct {
	mu sync.Mutex

	baseURL      string
	sitemapURL   string
	sitemapError string
	seedCount    int
	skipped      int
	startedAt    time.Time
	finishedAt   time.Time
	interrupted  bool
	finished     bool
	outcomes     []Outcome
}

// NewReport creates an empty report for the given base URL.
func NewReport(baseURL string) *Report {
	return &Report{
		baseURL:   baseURL,
		startedAt: time.Now(),
		outcomes:  make([]Outcome, 0),
	}
}

// BaseURL returns the base URL the crawl was started with.
func (r *Report) BaseURL() string {
	return r.baseURL
}

// SetSitemap records which sitemap was consulted and, when it could not be
// used, the warning explaining why the crawl fell back to the base URL.
func (r *Report) SetSitemap(sitemapURL string, warning error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sitemapURL = sitemapURL
	r.sitemapError = ""
	if warning != nil {
		r.sitemapError = warning.Error()
	}
}

// SitemapWarning returns the non-fatal sitemap failure, or "" if the sitemap was used.
func (r *Report) SitemapWarning() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sitemapError
}

// SetSeedCount records how many pages the frontier was seeded with.
func (r *Report) SetSeedCount(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seedCount = n
}

// AddSkipped counts a page that was discovered but not fetched because the
// page limit was reached.
func (r *Report) AddSkipped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.finished {
		r.skipped++
	}
}

// Skipped returns the number of pages left unfetched by the page limit.
func (r *Report) Skipped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.skipped
}

// Record appends an outcome. It returns false if the report is already finished.
func (r *Report) Record(o Outcome) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return false
	}
	r.outcomes = append(r.outcomes, o)
	return true
}

// Finish freezes the report. interrupted marks a run that was cancelled
// before the frontier drained.
func (r *Report) Finish(interrupted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}
	r.finished = true
	r.interrupted = interrupted
	r.finishedAt = time.Now()
}

// Finished reports whether Finish has been called.
func (r *Report) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}

// Outcomes returns a copy of the recorded outcomes in recording order.
func (r *Report) Outcomes() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.outcomes)
}

// SuccessPages returns the sorted URLs of pages that were saved.
func (r *Report) SuccessPages() []string {
	return r.bucket(KindPage, ResultSuccess)
}

// FailedPages returns the sorted URLs of pages that could not be saved.
func (r *Report) FailedPages() []string {
	return r.bucket(KindPage, ResultFailure)
}

// SuccessAssets returns the sorted URLs of assets that were saved.
func (r *Report) SuccessAssets() []string {
	return r.bucket(KindAsset, ResultSuccess)
}

// FailedAssets returns the sorted URLs of assets that could not be saved.
func (r *Report) FailedAssets() []string {
	return r.bucket(KindAsset, ResultFailure)
}

// Counts returns the size of each bucket.
func (r *Report) Counts() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()

	var c Counts
	for _, o := range r.outcomes {
		switch {
		case o.Kind == KindPage && o.Succeeded():
			c.SuccessPages++
		case o.Kind == KindPage:
			c.FailedPages++
		case o.Succeeded():
			c.SuccessAssets++
		default:
			c.FailedAssets++
		}
	}
	return c
}

func (r *Report) bucket(kind Kind, result Result) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	urls := make([]string, 0)
	for _, o := range r.outcomes {
		if o.Kind == kind && o.Result == result {
			urls = append(urls, o.URL)
		}
	}
	slices.Sort(urls)
	return urls
}

// Summary returns a serializable snapshot of the report.
func (r *Report) Summary() Summary {
	counts := r.Counts()
	s := Summary{
		Counts:        counts,
		SuccessPages:  r.SuccessPages(),
		FailedPages:   r.FailedPages(),
		SuccessAssets: r.SuccessAssets(),
		FailedAssets:  r.FailedAssets(),
		Outcomes:      r.Outcomes(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	s.BaseURL = r.baseURL
	s.SitemapURL = r.sitemapURL
	s.SitemapWarning = r.sitemapError
	s.SeedCount = r.seedCount
	s.SkippedPages = r.skipped
	s.StartedAt = r.startedAt
	s.FinishedAt = r.finishedAt
	s.Interrupted = r.interrupted
	return s
}
