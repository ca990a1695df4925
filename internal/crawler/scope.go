package crawler

import (
	"fmt"

	"github.com/gobwas/glob"
	"github.com/nao1215/sitemirror/internal/urlkey"
)

// Scope filters discovered links by URL path.
//
// Patterns use glob syntax where "*" also matches "/", for example
// "/admin/*", "*.pdf" or "/logout*". A link matching any ignore pattern is
// dropped. When follow patterns are set, a link must match at least one.
type Scope struct {
	ignore []glob.Glob
	follow []glob.Glob
}

// NewScope compiles the given patterns.
func NewScope(ignore, follow []string) (*Scope, error) {
	s := &Scope{}
	var err error
	if s.ignore, err = compilePatterns(ignore); err != nil {
		return nil, err
	}
	if s.follow, err = compilePatterns(follow); err != nil {
		return nil, err
	}
	return s, nil
}

func compilePatterns(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, p, err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// Allows reports whether a link to k should enter the frontier.
// A nil Scope allows everything.
func (s *Scope) Allows(k urlkey.Key) bool {
	if s == nil {
		return true
	}
	p := k.Path()
	if p == "" {
		p = "/"
	}
	for _, g := range s.ignore {
		if g.Match(p) {
			return false
		}
	}
	if len(s.follow) == 0 {
		return true
	}
	for _, g := range s.follow {
		if g.Match(p) {
			return true
		}
	}
	return false
}
