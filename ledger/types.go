/*
Package ledger defines the shared ledger domain: invoice and movement
records and the Gateway interface used to persist them.

PURPOSE:
  This package contains the record types shared by every other component.
  The ledger itself is an opaque tabular store with two logical tables
  (invoices, movements); the Gateway interface abstracts whatever backs
  it (SQLite in production, memory in tests).

KEY CONCEPTS IN THIS FILE (types.go):
  - Invoice: a supplier invoice row, mutated only through the state machine
  - Movement: an immutable inter-store stock transfer row
  - InvoicePatch: partial update applied to a single invoice row
  - InvoiceStatus: pending -> in_delivery -> delivered

DESIGN PRINCIPLES:
  1. Movements are append-only; corrections happen at the invoice level
  2. Quantities use decimal.Decimal to avoid floating-point errors
  3. Dates travel as ISO strings, matching the external accounting format
  4. Duplicate invoice ids collapse to the first occurrence on read

SEE ALSO:
  - gateway.go: Persistence interface
  - errors.go: Error taxonomy
  - store/sqlite: Production implementation
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INVOICE - One supplier invoice row
// =============================================================================

type InvoiceStatus string

const (
	StatusPending    InvoiceStatus = "pending"
	StatusInDelivery InvoiceStatus = "in_delivery"
	StatusDelivered  InvoiceStatus = "delivered"
)

// Invoice is one row of the invoices table. Exactly one row exists per ID;
// when the underlying store holds duplicates, reads keep the first occurrence.
type Invoice struct {
	ID           string
	Number       string // human-facing, e.g. MOV0042; unique by convention only
	Supplier     string
	IssueDate    string // YYYY-MM-DD, may be empty
	DeliveryDate string // YYYY-MM-DD, empty until delivery is confirmed
	Status       InvoiceStatus
	Store        string // destination location name
	ConfirmedBy  string // email of the confirming user, empty until confirmed
	Notes        string // free text; non-empty notes mark delivery discrepancies
	RawText      string // content destined for the txt artifact, may be empty
	SupplierCode string
}

// InvoicePatch is a partial update. Nil fields are left untouched.
type InvoicePatch struct {
	Status       *InvoiceStatus
	DeliveryDate *string
	ConfirmedBy  *string
	Notes        *string
}

// IsEmpty reports whether the patch carries no fields at all.
func (p InvoicePatch) IsEmpty() bool {
	return p.Status == nil && p.DeliveryDate == nil && p.ConfirmedBy == nil && p.Notes == nil
}

// ApplyTo merges the patch into inv (patch wins) and returns the result.
// This is how the pre-update snapshot for artifact generation is built:
// current row values overlaid with exactly the values being committed.
func (p InvoicePatch) ApplyTo(inv Invoice) Invoice {
	if p.Status != nil {
		inv.Status = *p.Status
	}
	if p.DeliveryDate != nil {
		inv.DeliveryDate = *p.DeliveryDate
	}
	if p.ConfirmedBy != nil {
		inv.ConfirmedBy = *p.ConfirmedBy
	}
	if p.Notes != nil {
		inv.Notes = *p.Notes
	}
	return inv
}

// =============================================================================
// MOVEMENT - One inter-store stock transfer row (immutable once written)
// =============================================================================

// MovementRegistered is the only status a movement ever has.
const MovementRegistered = "registered"

type Movement struct {
	ID              string // "<batch timestamp>-<index>", unique within a batch
	MovementDate    string // YYYY-MM-DD
	Timestamp       time.Time
	Origin          string
	OriginCode      string
	Product         string
	Quantity        decimal.Decimal // always > 0
	Unit            string
	Destination     string
	DestinationCode string
	Status          string // MovementRegistered
	RawText         string
	RawTextFilename string
	CreatedBy       string
}
