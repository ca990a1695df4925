package urlkey

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/nao1215/sitemirror/internal/model"
	whatwgUrl "github.com/nlnwa/whatwg-url/url"
)

// parser resolves references the way browsers do: backslashes, dot segments,
// default ports, host case and stray percent signs are all canonicalized.
var parser = whatwgUrl.NewParser(whatwgUrl.WithPercentEncodeSinglePercentSign())

// skipSchemes lists schemes that never denote a fetchable resource.
var skipSchemes = []string{"javascript", "mailto", "tel", "data", "sms"}

// Normalize resolves raw against base and returns its canonical key.
//
// HTML entities in raw are unescaped first. References that are empty,
// fragment-only, use a non-fetchable scheme or fail to parse are rejected
// with ErrEmpty, ErrFragmentOnly, ErrUnsupportedScheme or ErrMalformed.
// Normalize does not decide whether the result is internal.
func Normalize(raw, base string) (Key, error) {
	ref := strings.TrimSpace(html.UnescapeString(raw))
	if ref == "" {
		return "", ErrEmpty
	}
	if strings.HasPrefix(ref, "#") {
		return "", ErrFragmentOnly
	}
	if hasSkippedScheme(ref) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, ref)
	}

	var (
		resolved *whatwgUrl.Url
		err      error
	)
	if base == "" {
		resolved, err = parser.Parse(ref)
	} else {
		resolved, err = parser.ParseRef(base, ref)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	u, err := url.Parse(resolved.Href(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if isSkippedScheme(scheme) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}

	canonical := &url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   u.Path,
		Opaque: u.Opaque,
	}
	return Key(canonical.String()), nil
}

// Classify returns KindPage when the key's path is empty, ends in "/" or
// ends in ".html", and KindAsset otherwise. It is a scheduling hint only:
// the fetch executor makes the final call from the response Content-Type.
func Classify(k Key) model.Kind {
	p := k.Path()
	if p == "" || strings.HasSuffix(p, "/") || strings.HasSuffix(strings.ToLower(p), ".html") {
		return model.KindPage
	}
	return model.KindAsset
}

func hasSkippedScheme(ref string) bool {
	lower := strings.ToLower(ref)
	for _, scheme := range skipSchemes {
		if strings.HasPrefix(lower, scheme+":") {
			return true
		}
	}
	// javascript(…) pseudo links written without a colon
	return strings.HasPrefix(lower, "javascript") && strings.Contains(lower, "(")
}

func isSkippedScheme(scheme string) bool {
	for _, s := range skipSchemes {
		if scheme == s {
			return true
		}
	}
	return false
}

// Normalizer binds Normalize to the base URL of one crawl, so that it can
// also tell internal links from external ones.
type Normalizer struct {
	base Key
	host string
}

// NewNormalizer creates a normalizer for the given base URL.
// The base must be an absolute http or https URL with a host.
func NewNormalizer(baseURL string) (*Normalizer, error) {
	base, err := Normalize(baseURL, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase, err)
	}
	u := base.URL()
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBase, baseURL)
	}
	return &Normalizer{
		base: base,
		host: canonicalHost(u.Scheme, u.Host),
	}, nil
}

// Base returns the canonical key of the base URL.
func (n *Normalizer) Base() Key {
	return n.base
}

// Host returns the base host that defines "internal".
func (n *Normalizer) Host() string {
	return n.host
}

// Normalize resolves raw against base, or against the crawl base when base is empty.
func (n *Normalizer) Normalize(raw, base string) (Key, error) {
	if base == "" {
		base = n.base.String()
	}
	return Normalize(raw, base)
}

// Internal normalizes raw and additionally rejects external results with ErrExternal.
func (n *Normalizer) Internal(raw, base string) (Key, error) {
	k, err := n.Normalize(raw, base)
	if err != nil {
		return "", err
	}
	if !n.IsInternal(k.String()) {
		return "", fmt.Errorf("%w: %s", ErrExternal, k)
	}
	return k, nil
}

// IsInternal reports whether rawURL stays on the base host. A URL without a
// host is internal. Any scheme other than http or https is external.
func (n *Normalizer) IsInternal(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "" && scheme != "http" && scheme != "https" {
		return false
	}
	if u.Host == "" {
		return u.Opaque == ""
	}
	return canonicalHost(scheme, u.Host) == n.host
}

// Classify returns the page/asset hint for k.
func (n *Normalizer) Classify(k Key) model.Kind {
	return Classify(k)
}

// canonicalHost lower-cases host and drops the default port of scheme.
func canonicalHost(scheme, host string) string {
	host = strings.ToLower(host)
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		return strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		return strings.TrimSuffix(host, ":443")
	}
	return host
}
