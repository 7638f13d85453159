/*
errors.go - Centralized error taxonomy for the delivery engine

PURPOSE:
  All error classes in one place for consistency and discoverability.
  Other packages wrap these sentinels with additional context.

ERROR CATEGORIES:
  1. Validation errors - malformed input (bad field, bad filename, bad date)
  2. Not-found errors  - unknown invoice id or missing artifact
  3. Upstream errors   - ledger unreachable or malformed ledger response
  4. IO errors         - filesystem failure in the artifact store

PROPAGATION POLICY:
  Validation and not-found errors are terminal and reported immediately.
  Upstream/IO errors during a primary operation surface as failures; the
  same classes during the best-effort artifact step after a delivery
  confirmation are caught and logged, never surfaced to the caller.

USAGE:
  if errors.Is(err, ledger.ErrInvoiceNotFound) { ... }

SEE ALSO:
  - invoice/statemachine.go: primary vs. secondary error handling
  - artifact/manager.go: filename validation, backup failures
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all malformed-input errors.
	ErrValidation = errors.New("validation failed")

	// ErrInvoiceNotFound is returned when no invoice row matches the id.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrArtifactNotFound is returned when a named artifact does not exist,
	// or when a date-based export selects no artifacts.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrUpstream is returned when the ledger store is unreachable or
	// returns a malformed response.
	ErrUpstream = errors.New("ledger unavailable")

	// ErrIO is returned on artifact store filesystem failures.
	ErrIO = errors.New("filesystem failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FieldError reports a single invalid or missing field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrValidation }

// EntryError reports an invalid field inside a batch entry.
// Index is zero-based; messages shown to users are one-based.
type EntryError struct {
	Index  int
	Field  string
	Reason string
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %d: invalid %s: %s", e.Index+1, e.Field, e.Reason)
}

func (e *EntryError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record or file.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrInvoiceNotFound) || errors.Is(err, ErrArtifactNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || IsNotFound(err)
}
