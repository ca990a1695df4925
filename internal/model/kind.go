package model

import (
	"fmt"
	"strings"
)

// Kind is the bucket a URL belongs to: an HTML page or a static asset.
type Kind int

const (
	// KindPage is an HTML document whose links are followed.
	KindPage Kind = iota

	// KindAsset is any other resource referenced by a page or stylesheet:
	// images, scripts, stylesheets, fonts, media.
	KindAsset
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindAsset:
		return "asset"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k != KindPage && k != KindAsset {
		return nil, fmt.Errorf("invalid kind: %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	kind, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// ParseKind converts "page" or "asset" (case-insensitive) into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "page":
		return KindPage, nil
	case "asset":
		return KindAsset, nil
	default:
		return KindPage, fmt.Errorf("unknown kind: %q", s)
	}
}

// Result is the terminal state of one fetch attempt.
type Result int

const (
	// ResultSuccess means the bytes were retrieved with a 2xx status and saved.
	ResultSuccess Result = iota

	// ResultFailure covers transport errors, timeouts, non-2xx statuses
	// and persistence errors.
	ResultFailure
)

// String returns the lower-case name of the result.
func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Result) MarshalText() ([]byte, error) {
	if r != ResultSuccess && r != ResultFailure {
		return nil, fmt.Errorf("invalid result: %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Result) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "success":
		*r = ResultSuccess
	case "failure":
		*r = ResultFailure
	default:
		return fmt.Errorf("unknown result: %q", string(text))
	}
	return nil
}
