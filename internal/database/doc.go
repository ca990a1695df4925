// Package database keeps the history of mirror runs in SQLite
// (modernc.org/sqlite, no cgo).
//
// Every finished run is stored with its counts and the outcome of each
// URL, including the SHA3 digest of what was saved. The history and
// compare commands read it back to list past runs and to show what
// started failing, what recovered and which files changed between two
// runs of the same site.
package database
