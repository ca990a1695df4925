package model

import (
	"strings"
	"time"
)

// Outcome is the record of a single fetch attempt.
// It is created once by the fetch executor and never modified afterwards.
type Outcome struct {
	// URL is the normalized key that was fetched.
	URL string `json:"url"`

	// Kind is the bucket the URL was reported in. When a response was received
	// it follows the response Content-Type, otherwise the scheduling hint.
	Kind Kind `json:"kind"`

	// Result is success or failure.
	Result Result `json:"result"`

	// Error holds the failure detail. Empty on success.
	Error string `json:"error,omitempty"`

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int `json:"status_code,omitempty"`

	// ContentType is the media type of the response without parameters.
	ContentType string `json:"content_type,omitempty"`

	// Path is the file path relative to the output root.
	Path string `json:"path,omitempty"`

	// Bytes is the number of bytes written to disk.
	Bytes int64 `json:"bytes,omitempty"`

	// Digest is the hex SHA3-256 of the saved bytes.
	Digest string `json:"digest,omitempty"`

	// FetchedAt is when the attempt started.
	FetchedAt time.Time `json:"fetched_at"`

	// Duration is how long the attempt took, including persistence.
	Duration time.Duration `json:"duration"`
}

// Succeeded reports whether the attempt saved the resource.
func (o Outcome) Succeeded() bool {
	return o.Result == ResultSuccess
}

// IsHTMLContentType reports whether a Content-Type header value denotes an
// HTML document. Parameters such as charset are ignored.
func IsHTMLContentType(contentType string) bool {
	mediaType := MediaType(contentType)
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// IsCSSContentType reports whether a Content-Type header value denotes a stylesheet.
func IsCSSContentType(contentType string) bool {
	return MediaType(contentType) == "text/css"
}

// MediaType strips parameters from a Content-Type value and lower-cases it.
func MediaType(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}
