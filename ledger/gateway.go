/*
gateway.go - Persistence interface for the shared ledger

PURPOSE:
  Defines the interface between the domain logic and the tabular store
  backing the ledger. The store supports exactly three primitives per
  table: read all rows, append rows, update a row by key. Everything
  richer (filtering, number allocation, snapshots) is built on top by
  the domain packages.

TABLES:
  invoices:  mutated only through UpdateInvoice, never deleted
  movements: append-only, immutable once written

DUPLICATE COLLAPSE:
  The external store offers no uniqueness guarantee on invoice ids.
  Implementations MUST collapse duplicate ids to the first occurrence
  seen when reading the full table.

CONCURRENCY:
  No locking is performed at this layer. Concurrent writers race with
  last-writer-wins semantics; this is an accepted property of the
  single-writer deployment, not something implementations should fix.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store
  - ledger/memory.go: in-memory gateway for tests

SEE ALSO:
  - invoice/recorder.go: movement batches and invoice derivation
  - invoice/statemachine.go: invoice updates
*/
package ledger

import "context"

// Gateway is the typed facade over the two ledger tables.
type Gateway interface {
	// Invoices returns every invoice row, duplicates collapsed to the
	// first occurrence per id.
	Invoices(ctx context.Context) ([]Invoice, error)

	// AppendInvoices appends rows to the invoices table.
	AppendInvoices(ctx context.Context, rows []Invoice) error

	// UpdateInvoice applies the patch to the row with the given id.
	// Returns ErrInvoiceNotFound if no row matches.
	UpdateInvoice(ctx context.Context, id string, patch InvoicePatch) error

	// Movements returns every movement row, newest timestamp first.
	Movements(ctx context.Context) ([]Movement, error)

	// AppendMovements appends rows to the movements table in one call.
	AppendMovements(ctx context.Context, rows []Movement) error
}
