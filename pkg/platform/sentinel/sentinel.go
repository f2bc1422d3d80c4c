// Package sentinel holds the storage-level facts that every store backend
// reports the same way. Services translate them into coded domain errors;
// request validation failures belong in pkg/domain-errors instead.
package sentinel

import "errors"

var (
	// ErrNotFound covers rows that are absent and rows owned by another organization.
	ErrNotFound = errors.New("not found")
	// ErrConflict is a rejected uniqueness constraint, such as a reused evidence
	// number or a replayed audit entry ID.
	ErrConflict = errors.New("conflict")
	// ErrOverflow is a counter update that would not fit the column.
	ErrOverflow = errors.New("overflow")
)
