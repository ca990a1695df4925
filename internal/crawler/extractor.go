package crawler

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/sitemirror/internal/model"
	"github.com/nao1215/sitemirror/internal/urlkey"
	"golang.org/x/net/html"
)

var (
	// cssURLPattern matches url(...) with optional quotes.
	cssURLPattern = regexp.MustCompile(`url\(\s*["']?([^"')]+?)["']?\s*\)`)

	// cssImportPattern matches the string form of @import.
	cssImportPattern = regexp.MustCompile(`@import\s+["']([^"']+)["']`)
)

// reference is an element/attribute pair that may carry a URL.
type reference struct {
	selector string
	attr     string
}

var references = []reference{
	{"a[href]", "href"},
	{"link[href]", "href"},
	{"script[src]", "src"},
	{"img[src]", "src"},
	{"img[data-src]", "data-src"},
	{"img[data-bg]", "data-bg"},
	{"source[src]", "src"},
	{"iframe[src]", "src"},
	{"video[src]", "src"},
	{"video[poster]", "poster"},
	{"audio[src]", "src"},
	{"track[src]", "src"},
	{"embed[src]", "src"},
}

// Extractor finds internal page and asset references in documents.
type Extractor struct {
	norm  *urlkey.Normalizer
	scope *Scope
}

// NewExtractor creates an Extractor for the crawl described by norm.
// scope may be nil.
func NewExtractor(norm *urlkey.Normalizer, scope *Scope) *Extractor {
	return &Extractor{norm: norm, scope: scope}
}

// Extract returns the internal pages and assets referenced by an HTML document.
//
// The whole document is entity-unescaped before parsing. Links are resolved
// against the document's <base href> when present, otherwise baseURL.
// Rejected, external and out-of-scope references are dropped silently.
func (e *Extractor) Extract(markup, baseURL string) (pages, assets urlkey.KeySet) {
	pages, assets = urlkey.KeySet{}, urlkey.KeySet{}
	doc := html.UnescapeString(markup)

	if root, err := html.Parse(strings.NewReader(doc)); err == nil {
		dom := goquery.NewDocumentFromNode(root)

		if href, ok := dom.Find("base[href]").First().Attr("href"); ok {
			if resolved, err := e.norm.Normalize(href, baseURL); err == nil {
				baseURL = resolved.String()
			}
		}

		for _, ref := range references {
			dom.Find(ref.selector).Each(func(_ int, s *goquery.Selection) {
				if v, ok := s.Attr(ref.attr); ok {
					e.add(v, baseURL, pages, assets)
				}
			})
		}

		dom.Find("img[srcset], source[srcset]").Each(func(_ int, s *goquery.Selection) {
			srcset, _ := s.Attr("srcset")
			for _, candidate := range parseSrcset(srcset) {
				e.add(candidate, baseURL, pages, assets)
			}
		})

		dom.Find("[style]").Each(func(_ int, s *goquery.Selection) {
			style, _ := s.Attr("style")
			e.scanCSS(style, baseURL, pages, assets)
		})
	}

	// <style> blocks and anything the parser did not attach to an attribute.
	e.scanCSS(doc, baseURL, pages, assets)

	return pages, assets
}

// ExtractStylesheet returns the internal references of a CSS document.
// Relative references resolve against cssURL, the stylesheet's own URL.
func (e *Extractor) ExtractStylesheet(css, cssURL string) (pages, assets urlkey.KeySet) {
	pages, assets = urlkey.KeySet{}, urlkey.KeySet{}
	e.scanCSS(css, cssURL, pages, assets)
	for _, m := range cssImportPattern.FindAllStringSubmatch(css, -1) {
		e.add(m[1], cssURL, pages, assets)
	}
	return pages, assets
}

func (e *Extractor) scanCSS(text, baseURL string, pages, assets urlkey.KeySet) {
	for _, m := range cssURLPattern.FindAllStringSubmatch(text, -1) {
		ref := strings.TrimSpace(m[1])
		if strings.HasPrefix(strings.ToLower(ref), "data:") {
			continue
		}
		e.add(ref, baseURL, pages, assets)
	}
}

func (e *Extractor) add(raw, baseURL string, pages, assets urlkey.KeySet) {
	key, err := e.norm.Internal(raw, baseURL)
	if err != nil {
		return
	}
	if !e.scope.Allows(key) {
		return
	}
	if urlkey.Classify(key) == model.KindPage {
		pages.Add(key)
		return
	}
	assets.Add(key)
}

// parseSrcset returns the URLs of a srcset attribute ("a.png 1x, b.png 2x").
// Attributes containing data: URIs are skipped because their payloads contain commas.
func parseSrcset(srcset string) []string {
	if strings.Contains(strings.ToLower(srcset), "data:") {
		return nil
	}
	var urls []string
	for _, candidate := range strings.Split(srcset, ",") {
		fields := strings.Fields(candidate)
		if len(fields) > 0 {
			urls = append(urls, fields[0])
		}
	}
	return urls
}
