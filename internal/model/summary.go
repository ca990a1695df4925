package model

import "time"

// Summary is the flattened form of a Report used by the JSON writer and
// stored in the history database.
type Summary struct {
	// BaseURL is the site that was mirrored.
	BaseURL string `json:"base_url"`

	// SitemapURL is the sitemap that was consulted during seeding.
	SitemapURL string `json:"sitemap_url,omitempty"`

	// SitemapWarning explains why seeding fell back to the base URL.
	// Empty when the sitemap was usable.
	SitemapWarning string `json:"sitemap_warning,omitempty"`

	// SeedCount is the number of pages the frontier started with.
	SeedCount int `json:"seed_count"`

	// SkippedPages counts discovered pages left unfetched by the page limit.
	SkippedPages int `json:"skipped_pages,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Interrupted is true when the run was cancelled before the frontier drained.
	Interrupted bool `json:"interrupted"`

	Counts Counts `json:"counts"`

	SuccessPages  []string `json:"success_pages"`
	FailedPages   []string `json:"failed_pages"`
	SuccessAssets []string `json:"success_assets"`
	FailedAssets  []string `json:"failed_assets"`

	// Outcomes holds every fetch attempt with its metadata.
	Outcomes []Outcome `json:"outcomes,omitempty"`
}

// Elapsed returns the wall-clock duration of the run.
func (s Summary) Elapsed() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
