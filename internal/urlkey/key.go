package urlkey

import (
	"net/url"
	"slices"
)

// Key is a canonical URL: scheme://host/path with query and fragment stripped.
type Key string

// String returns the key as a URL string.
func (k Key) String() string {
	return string(k)
}

// URL parses the key. Keys produced by Normalize always parse.
func (k Key) URL() *url.URL {
	u, err := url.Parse(string(k))
	if err != nil {
		return &url.URL{}
	}
	return u
}

// Path returns the percent-decoded path of the key.
func (k Key) Path() string {
	return k.URL().Path
}

// Host returns the host (with non-default port) of the key.
func (k Key) Host() string {
	return k.URL().Host
}

// KeySet is a set of keys.
type KeySet map[Key]struct{}

// NewKeySet builds a set from the given keys.
func NewKeySet(keys ...Key) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Add inserts k and reports whether it was not present before.
func (s KeySet) Add(k Key) bool {
	if _, ok := s[k]; ok {
		return false
	}
	s[k] = struct{}{}
	return true
}

// Has reports whether k is in the set.
func (s KeySet) Has(k Key) bool {
	_, ok := s[k]
	return ok
}

// Len returns the number of keys.
func (s KeySet) Len() int {
	return len(s)
}

// Sorted returns the keys in lexical order.
func (s KeySet) Sorted() []Key {
	keys := make([]Key, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Strings returns the keys in lexical order as plain strings.
func (s KeySet) Strings() []string {
	out := make([]string, 0, len(s))
	for _, k := range s.Sorted() {
		out = append(out, string(k))
	}
	return out
}
