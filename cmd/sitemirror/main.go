// Package main provides the sitemirror command.
//
// sitemirror copies a website to disk so that it can be browsed offline.
// It seeds the crawl from the sitemap, follows internal links, saves every
// page and asset it can reach and writes a report of what failed.
//
// Usage:
//
//	sitemirror mirror https://example.com/
//	sitemirror history https://example.com/
//	sitemirror compare https://example.com/
//
// See --help for all available options.
package main

func main() {
	Execute()
}
