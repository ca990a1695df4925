// Package report renders crawl results.
//
// A finished crawl is turned into a model.Summary and handed to a Writer:
// MarkdownWriter produces crawl_report.md, JSONWriter a machine readable
// document and SimpleWriter a plain text version for terminals.
// WriteFailedPages produces failed_pages.json, and the Comparison types
// render the difference between two stored runs.
package report
