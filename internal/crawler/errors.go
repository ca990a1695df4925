package crawler

import "errors"

var (
	// ErrSitemapStatus is returned when the sitemap responds with a non-2xx status.
	ErrSitemapStatus = errors.New("sitemap returned unexpected status")

	// ErrSitemapParse is returned when the sitemap is not well-formed XML.
	ErrSitemapParse = errors.New("failed to parse sitemap")

	// ErrSitemapEmpty is returned when the sitemap lists no <loc> entries.
	ErrSitemapEmpty = errors.New("sitemap lists no URLs")

	// ErrNoInternalSeeds is returned when every sitemap URL is outside the base host.
	ErrNoInternalSeeds = errors.New("sitemap lists no internal URLs")

	// ErrUnexpectedStatus is the failure recorded for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrOffsiteRedirect is the failure recorded when a fetch ends on another host.
	ErrOffsiteRedirect = errors.New("redirected off the base host")

	// ErrInvalidPattern is returned when an ignore or follow pattern does not compile.
	ErrInvalidPattern = errors.New("invalid URL pattern")
)
