package storage

import "errors"

var (
	// ErrNotFound means no run or event carries the requested ID.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey means the run or event ID is already recorded.
	// The ledger and the event log are append-only.
	ErrDuplicateKey = errors.New("duplicate key: ledger entries are append-only")

	// ErrInvalidInput means a record is missing its ID or carries an unknown outcome.
	ErrInvalidInput = errors.New("invalid input")
)
