package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/retailops/delivery-engine/ledger"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	gw, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create gateway: %v", err)
	}
	t.Cleanup(func() { gw.Close() })
	return gw
}

func testInvoice(id, number string) ledger.Invoice {
	return ledger.Invoice{
		ID:       id,
		Number:   number,
		Supplier: "Store A",
		Store:    "Store B",
		Status:   ledger.StatusPending,
		RawText:  "RIGA;Mozzarella;10;KG",
	}
}

// =============================================================================
// INVOICES
// =============================================================================

func TestInvoices_RoundTrip(t *testing.T) {
	gw := newTestGateway(t)
	ctx := context.Background()

	want := testInvoice("inv-1", "MOV0001")
	want.IssueDate = "2025-03-10"
	want.SupplierCode = "INTERNAL"
	if err := gw.AppendInvoices(ctx, []ledger.Invoice{want}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got, err := gw.Invoices(ctx)
	if err != nil {
		t.Fatalf("Invoices failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 invoice, got %d", len(got))
	}
	if got[0] != want {
		t.Errorf("Round trip mismatch:\n got %+v\nwant %+v", got[0], want)
	}
}

func TestInvoices_DuplicateIdsCollapseToFirst(t *testing.T) {
	// GIVEN: Two rows sharing an id with different suppliers
	gw := newTestGateway(t)
	ctx := context.Background()

	first := testInvoice("inv-dup", "MOV0001")
	first.Supplier = "First Occurrence"
	second := testInvoice("inv-dup", "MOV0002")
	second.Supplier = "Second Occurrence"
	if err := gw.AppendInvoices(ctx, []ledger.Invoice{first, second}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// WHEN: Reading
	got, err := gw.Invoices(ctx)
	if err != nil {
		t.Fatalf("Invoices failed: %v", err)
	}

	// THEN: Only the first occurrence is visible
	if len(got) != 1 {
		t.Fatalf("Expected duplicates collapsed to 1 row, got %d", len(got))
	}
	if got[0].Supplier != "First Occurrence" {
		t.Errorf("Expected first occurrence kept, got %s", got[0].Supplier)
	}
}

func TestUpdateInvoice_PatchSemantics(t *testing.T) {
	gw := newTestGateway(t)
	ctx := context.Background()

	inv := testInvoice("inv-1", "MOV0001")
	inv.Notes = "keep me unless patched"
	if err := gw.AppendInvoices(ctx, []ledger.Invoice{inv}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	delivered := ledger.StatusDelivered
	date := "2025-03-14"
	err := gw.UpdateInvoice(ctx, "inv-1", ledger.InvoicePatch{
		Status:       &delivered,
		DeliveryDate: &date,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, _ := gw.Invoices(ctx)
	if got[0].Status != ledger.StatusDelivered || got[0].DeliveryDate != "2025-03-14" {
		t.Errorf("Patched fields not applied: %+v", got[0])
	}
	if got[0].Notes != "keep me unless patched" {
		t.Errorf("Unpatched field was touched: %q", got[0].Notes)
	}
}

func TestUpdateInvoice_OnlyFirstDuplicateRow(t *testing.T) {
	gw := newTestGateway(t)
	ctx := context.Background()

	first := testInvoice("inv-dup", "MOV0001")
	second := testInvoice("inv-dup", "MOV0002")
	if err := gw.AppendInvoices(ctx, []ledger.Invoice{first, second}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	notes := "patched"
	if err := gw.UpdateInvoice(ctx, "inv-dup", ledger.InvoicePatch{Notes: &notes}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// The visible (first) row carries the patch
	got, _ := gw.Invoices(ctx)
	if len(got) != 1 || got[0].Number != "MOV0001" || got[0].Notes != "patched" {
		t.Errorf("Expected first row patched, got %+v", got)
	}
}

func TestUpdateInvoice_UnknownId(t *testing.T) {
	gw := newTestGateway(t)

	notes := "x"
	err := gw.UpdateInvoice(context.Background(), "missing", ledger.InvoicePatch{Notes: &notes})
	if !errors.Is(err, ledger.ErrInvoiceNotFound) {
		t.Fatalf("Expected not found, got %v", err)
	}
}

// =============================================================================
// MOVEMENTS
// =============================================================================

func TestMovements_RoundTripAndOrdering(t *testing.T) {
	gw := newTestGateway(t)
	ctx := context.Background()

	older := ledger.Movement{
		ID:           "2025-03-13T10:00:00.000Z-0",
		MovementDate: "2025-03-13",
		Timestamp:    time.Date(2025, 3, 13, 10, 0, 0, 0, time.UTC),
		Origin:       "Store A",
		Product:      "Mozzarella",
		Quantity:     decimal.NewFromFloat(10.5),
		Unit:         "kg",
		Destination:  "Store B",
		Status:       ledger.MovementRegistered,
		CreatedBy:    "op@example.com",
	}
	newer := older
	newer.ID = "2025-03-14T10:00:00.000Z-0"
	newer.MovementDate = "2025-03-14"
	newer.Timestamp = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	if err := gw.AppendMovements(ctx, []ledger.Movement{older, newer}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got, err := gw.Movements(ctx)
	if err != nil {
		t.Fatalf("Movements failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 movements, got %d", len(got))
	}

	// Newest first
	if got[0].ID != newer.ID {
		t.Errorf("Expected newest first, got %s", got[0].ID)
	}

	// Decimal survives the text column exactly
	if !got[1].Quantity.Equal(decimal.NewFromFloat(10.5)) {
		t.Errorf("Quantity mismatch: %s", got[1].Quantity)
	}
	if !got[1].Timestamp.Equal(older.Timestamp) {
		t.Errorf("Timestamp mismatch: %s", got[1].Timestamp)
	}
}

func TestMovements_BatchKeepsSubmissionOrder(t *testing.T) {
	// GIVEN: One batch whose rows all share the batch timestamp
	gw := newTestGateway(t)
	ctx := context.Background()

	at := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	batch := make([]ledger.Movement, 3)
	for i := range batch {
		batch[i] = ledger.Movement{
			ID:          "2025-03-14T10:00:00.000Z-" + string(rune('0'+i)),
			Timestamp:   at,
			Origin:      "Store A",
			Product:     "Item",
			Quantity:    decimal.NewFromInt(1),
			Destination: "Store B",
			Status:      ledger.MovementRegistered,
		}
	}
	if err := gw.AppendMovements(ctx, batch); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// WHEN: Reading newest-first
	got, err := gw.Movements(ctx)
	if err != nil {
		t.Fatalf("Movements failed: %v", err)
	}

	// THEN: Within the shared timestamp, rows stay in submission order
	if len(got) != 3 {
		t.Fatalf("Expected 3 movements, got %d", len(got))
	}
	for i, mv := range got {
		if mv.ID != batch[i].ID {
			t.Errorf("Position %d: expected %s, got %s", i, batch[i].ID, mv.ID)
		}
	}
}
