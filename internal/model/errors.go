package model

import "errors"

// Error classes shared across the engine. Concrete failures wrap one of
// these so callers can classify with errors.Is without matching strings.
var (
	// ErrInvalidInput marks malformed input rejected before any state change.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized marks a non-owner invoking an owner-only operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotAllowed marks a whitelist or mutual-exclusion policy violation.
	ErrNotAllowed = errors.New("policy violation")

	// ErrTransferFailed marks an asset movement the ledger refused; the
	// enclosing operation is rolled back in full.
	ErrTransferFailed = errors.New("transfer failed")
)
