// Package storage writes mirrored resources below an output root.
package storage
