package config

import "errors"

// Sentinel errors returned by Config.Validate.
var (
	// ErrNoTarget is returned when no base URL was given.
	ErrNoTarget = errors.New("no target specified: provide at least one base URL")

	// ErrInvalidBaseURL is returned when a target is not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("invalid base URL: must be an absolute http or https URL")

	// ErrInvalidTimeout is returned when the per-request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when fewer than one worker is requested.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be at least 1")

	// ErrInvalidBatchSize is returned when the number of sites mirrored at once is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidReportFormat is returned for a --format other than markdown, json or text.
	ErrInvalidReportFormat = errors.New("invalid report format: must be markdown, json or text")

	// ErrInvalidMaxPages is returned when the page limit is negative.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the body size limit is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrEmptyOutputDir is returned when the mirror root is empty.
	ErrEmptyOutputDir = errors.New("output directory must not be empty")
)
