// Package urlkey turns raw link strings into canonical URL keys.
//
// A Key is scheme, host and percent-encoded path with query, fragment and
// userinfo removed. It is the identity used for de-duplication by the
// crawler, so every component that compares URLs goes through Normalize.
//
// The package also owns the single convention for mapping a key to a file
// path inside the mirror (RelativePath), so that the normalizer and the
// fetch executor always agree on encoding: keys carry the path encoded once,
// files are written under the decoded path.
package urlkey
