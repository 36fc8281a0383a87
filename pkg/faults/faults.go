// Package faults defines the error roots shared by every stage of the
// aggregation pipeline. Package-level sentinels wrap exactly one of them so
// callers can classify any failure with errors.Is.
package faults

import "errors"

var (
	// ErrMalformedInput marks data that cannot be parsed: author strings,
	// commit IDs, dates, edit markers, step sizes, dataset documents.
	ErrMalformedInput = errors.New("malformed input")

	// ErrReferentialIntegrity marks input that refers to something the
	// dataset does not contain, e.g. an edit naming an unknown commit.
	ErrReferentialIntegrity = errors.New("referential integrity violation")

	// ErrInvariant marks a caller or programmer contract violation.
	ErrInvariant = errors.New("invariant violation")
)
