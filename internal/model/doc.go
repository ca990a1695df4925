// Package model defines the data structures shared by the crawler,
// the report writers and the history database.
//
// This package contains the following main types:
//   - Kind and Result: how a fetched URL is bucketed
//   - Outcome: the immutable record of one fetch attempt
//   - Report: the concurrency-safe aggregator of outcomes for one crawl run
//   - Summary: a flattened, serializable view of a finished Report
//
// The package has no dependencies on other internal packages so that every
// layer can import it without cycles.
package model
