package urlkey

import "errors"

var (
	// ErrEmpty is returned for an empty or whitespace-only reference.
	ErrEmpty = errors.New("empty reference")

	// ErrFragmentOnly is returned for an in-page anchor such as "#top".
	ErrFragmentOnly = errors.New("fragment-only reference")

	// ErrUnsupportedScheme is returned for javascript, mailto, tel, data and sms links.
	ErrUnsupportedScheme = errors.New("non-fetchable scheme")

	// ErrMalformed is returned when the reference cannot be resolved to a URL.
	ErrMalformed = errors.New("malformed URL")

	// ErrExternal is returned when a reference resolves outside the base host.
	ErrExternal = errors.New("external URL")

	// ErrInvalidBase is returned when the base URL is not an absolute http(s) URL.
	ErrInvalidBase = errors.New("base URL must be an absolute http or https URL")
)
