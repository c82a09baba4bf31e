package domain

import "errors"

// Fatal pipeline errors. A run that returns one of these reached no verdict.
// Reported halts are never errors; they travel as a Candidate with Proceed=false.
var (
	// ErrFormat is returned when file name metadata is present but malformed.
	ErrFormat = errors.New("format error")

	// ErrValidation is returned when required metadata is missing or a code is unrecognized.
	ErrValidation = errors.New("validation error")

	// ErrIO is returned when a collaborator fetch, listing or upload fails.
	ErrIO = errors.New("io error")

	// ErrArgument is returned for invalid arithmetic input such as a zero promoted size.
	ErrArgument = errors.New("invalid argument")

	// ErrTransfer is returned when a promotion copy fails.
	ErrTransfer = errors.New("transfer error")
)
