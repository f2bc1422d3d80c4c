// Package storage holds the persistence backends for the custody subsystem.
//
// Both backends (memory, postgres) implement the same narrow store interfaces
// declared by the services, plus RunInTx for unit-of-work boundaries: one
// transaction per logical operation, joined by nested calls. Store calls
// inside a RunInTx callback must pass the callback's ctx to join it.
package storage

import "custodian/pkg/platform/sentinel"

// ErrNotFound keeps storage-specific 404s consistent across backends.
var (
	ErrNotFound = sentinel.ErrNotFound
	ErrConflict = sentinel.ErrConflict
	ErrOverflow = sentinel.ErrOverflow
)
