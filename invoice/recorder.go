/*
recorder.go - Movement batch recording and invoice derivation

PURPOSE:
  Accepts a batch of stock-transfer entries from one origin store,
  validates the whole batch up front, appends it to the movements table
  in one call, then derives one pending invoice per movement.

VALIDATION:
  The entire batch is rejected before any ledger write when:
  - the origin is blank
  - the batch is empty
  - any entry has an empty product, an empty destination, or a
    non-positive quantity

DERIVATION ISOLATION:
  Each movement-to-invoice derivation is attempted independently. A
  ledger failure on one derivation is logged and counted; it aborts
  neither the remaining derivations nor the already-committed movement
  batch. The result carries granular success/failure counts.

NO ARTIFACTS HERE:
  Pending invoices carry no txt file. Artifacts appear only on the
  delivered transition (see statemachine.go).

SEE ALSO:
  - allocator.go: MOV number derivation
  - ledger/gateway.go: AppendMovements / AppendInvoices
*/
package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailops/delivery-engine/ledger"
)

// InternalSupplierCode is the supplier code stamped on invoices derived
// from movements whose origin store has no code of its own. It marks the
// invoice as an internal transfer for the accounting export.
const InternalSupplierCode = "INTERNAL"

// =============================================================================
// RECORDER
// =============================================================================

// MovementEntry is one submitted stock-transfer line.
type MovementEntry struct {
	Origin          string // optional per-entry override of the batch origin
	OriginCode      string
	Product         string
	Quantity        decimal.Decimal
	Unit            string
	Destination     string
	DestinationCode string
	RawText         string
	RawTextFilename string
}

// RecordResult reports what a batch actually did.
type RecordResult struct {
	MovementsInserted int
	InvoicesDerived   int
	InvoicesFailed    int
	InvoiceNumbers    []string
}

// Recorder validates and persists movement batches.
type Recorder struct {
	gw  ledger.Gateway
	log *slog.Logger
	now func() time.Time
}

func NewRecorder(gw ledger.Gateway) *Recorder {
	return &Recorder{
		gw:  gw,
		log: slog.Default(),
		now: time.Now,
	}
}

// Record persists the batch and derives pending invoices.
//
// The returned error is non-nil only when the batch itself fails
// (validation or the movement append). Derivation failures are reported
// through RecordResult, never as an error.
func (r *Recorder) Record(ctx context.Context, origin string, entries []MovementEntry, createdBy string) (*RecordResult, error) {
	if err := validateBatch(origin, entries); err != nil {
		return nil, err
	}

	batchAt := r.now().UTC()
	timestamp := batchAt.Format("2006-01-02T15:04:05.000Z")
	movementDate := batchAt.Format("2006-01-02")

	movements := make([]ledger.Movement, len(entries))
	for i, e := range entries {
		entryOrigin := e.Origin
		if entryOrigin == "" {
			entryOrigin = origin
		}
		movements[i] = ledger.Movement{
			ID:              fmt.Sprintf("%s-%d", timestamp, i),
			MovementDate:    movementDate,
			Timestamp:       batchAt,
			Origin:          entryOrigin,
			OriginCode:      e.OriginCode,
			Product:         strings.TrimSpace(e.Product),
			Quantity:        e.Quantity,
			Unit:            strings.TrimSpace(e.Unit),
			Destination:     strings.TrimSpace(e.Destination),
			DestinationCode: e.DestinationCode,
			Status:          ledger.MovementRegistered,
			RawText:         e.RawText,
			RawTextFilename: e.RawTextFilename,
			CreatedBy:       createdBy,
		}
	}

	if err := r.gw.AppendMovements(ctx, movements); err != nil {
		return nil, fmt.Errorf("%w: append movements: %v", ledger.ErrUpstream, err)
	}

	result := &RecordResult{MovementsInserted: len(movements)}
	for _, mv := range movements {
		number, err := r.deriveInvoice(ctx, mv, movementDate)
		if err != nil {
			result.InvoicesFailed++
			r.log.Error("invoice derivation failed",
				"movement_id", mv.ID,
				"product", mv.Product,
				"error", err)
			continue
		}
		result.InvoicesDerived++
		result.InvoiceNumbers = append(result.InvoiceNumbers, number)
	}
	return result, nil
}

// deriveInvoice creates one pending invoice from a committed movement.
// The number allocation re-scans existing invoices on every call.
func (r *Recorder) deriveInvoice(ctx context.Context, mv ledger.Movement, issueDate string) (string, error) {
	existing, err := r.gw.Invoices(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: read invoices: %v", ledger.ErrUpstream, err)
	}

	supplierCode := mv.OriginCode
	if supplierCode == "" {
		supplierCode = InternalSupplierCode
	}

	inv := ledger.Invoice{
		ID:           uuid.NewString(),
		Number:       nextNumberFrom(existing),
		Supplier:     mv.Origin,
		IssueDate:    issueDate,
		DeliveryDate: "",
		Status:       ledger.StatusPending,
		Store:        mv.Destination,
		Notes:        "",
		RawText:      mv.RawText,
		SupplierCode: supplierCode,
	}

	if err := r.gw.AppendInvoices(ctx, []ledger.Invoice{inv}); err != nil {
		return "", fmt.Errorf("%w: append invoice: %v", ledger.ErrUpstream, err)
	}
	return inv.Number, nil
}

// =============================================================================
// BATCH VALIDATION
// =============================================================================

func validateBatch(origin string, entries []MovementEntry) error {
	if strings.TrimSpace(origin) == "" {
		return &ledger.FieldError{Field: "origin", Reason: "origin store required"}
	}
	if len(entries) == 0 {
		return &ledger.FieldError{Field: "entries", Reason: "at least one movement required"}
	}
	for i, e := range entries {
		if strings.TrimSpace(e.Product) == "" {
			return &ledger.EntryError{Index: i, Field: "product", Reason: "required"}
		}
		if !e.Quantity.IsPositive() {
			return &ledger.EntryError{Index: i, Field: "quantity", Reason: "must be positive"}
		}
		if strings.TrimSpace(e.Destination) == "" {
			return &ledger.EntryError{Index: i, Field: "destination", Reason: "required"}
		}
	}
	return nil
}
