// Package pipeline runs a mirror job as a sequence of steps and runs
// several jobs concurrently.
//
// A job mirrors one base URL. Its pipeline has one main step, the crawl,
// followed by final steps that write the crawl report, the failed pages
// file and the history record. Final steps run even when the crawl was
// interrupted, so a cancelled run still leaves its partial results behind.
package pipeline
