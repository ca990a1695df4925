package urlkey

import (
	"path"
	"path/filepath"
	"strings"
)

// IndexFile is the file name used for directory-like URLs.
const IndexFile = "index.html"

// RelativePath maps a key to the file path it is stored under, relative to
// the mirror root and using the OS separator.
//
//	https://example.com/              -> index.html
//	https://example.com/blog/         -> blog/index.html
//	https://example.com/about         -> about/index.html
//	https://example.com/img/logo.png  -> img/logo.png
//
// The path is percent-decoded and cleaned so that it cannot climb above the root.
func RelativePath(k Key) string {
	rel := strings.TrimLeft(k.Path(), "/")
	switch {
	case rel == "" || strings.HasSuffix(rel, "/"):
		rel += IndexFile
	case path.Ext(rel) == "":
		rel += "/" + IndexFile
	}

	rel = strings.TrimPrefix(path.Clean("/"+rel), "/")
	if rel == "" {
		rel = IndexFile
	}
	return filepath.FromSlash(rel)
}
