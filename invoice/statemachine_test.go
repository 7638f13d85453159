package invoice

import (
	"context"
	"errors"
	"testing"

	"github.com/retailops/delivery-engine/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// captureGenerator records the snapshot it receives and returns a canned
// result or error.
type captureGenerator struct {
	snapshot *ledger.Invoice
	result   *ArtifactResult
	err      error
}

func (g *captureGenerator) Generate(_ context.Context, snap ledger.Invoice) (*ArtifactResult, error) {
	g.snapshot = &snap
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

func seedInvoice(t *testing.T, gw ledger.Gateway, inv ledger.Invoice) {
	t.Helper()
	if err := gw.AppendInvoices(context.Background(), []ledger.Invoice{inv}); err != nil {
		t.Fatalf("Failed to seed invoice: %v", err)
	}
}

func strPtr(s string) *string { return &s }

// =============================================================================
// BASIC UPDATES
// =============================================================================

func TestApplyUpdate_EmptyPatchRejected(t *testing.T) {
	sm := NewStateMachine(ledger.NewMemoryGateway(), nil)

	_, err := sm.ApplyUpdate(context.Background(), "inv-1", ledger.InvoicePatch{})

	if !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("Expected validation error, got %v", err)
	}
}

func TestApplyUpdate_UnknownInvoice(t *testing.T) {
	sm := NewStateMachine(ledger.NewMemoryGateway(), nil)

	_, err := sm.ApplyUpdate(context.Background(), "missing", ledger.InvoicePatch{Notes: strPtr("x")})

	if !errors.Is(err, ledger.ErrInvoiceNotFound) {
		t.Fatalf("Expected not found, got %v", err)
	}
}

func TestApplyUpdate_FieldEditDoesNotTouchArtifacts(t *testing.T) {
	// GIVEN: A pending invoice and a generator that must stay idle
	gw := ledger.NewMemoryGateway()
	seedInvoice(t, gw, ledger.Invoice{ID: "inv-1", Number: "MOV0001", Status: ledger.StatusPending})
	gen := &captureGenerator{}
	sm := NewStateMachine(gw, gen)

	// WHEN: Editing notes only
	result, err := sm.ApplyUpdate(context.Background(), "inv-1", ledger.InvoicePatch{Notes: strPtr("updated")})
	if err != nil {
		t.Fatalf("ApplyUpdate failed: %v", err)
	}

	// THEN: Updated, no artifact attempt, no generator call
	if !result.Updated || result.Artifact != nil {
		t.Errorf("Expected updated without artifact, got %+v", result)
	}
	if gen.snapshot != nil {
		t.Error("Generator must not be called on field-only edits")
	}

	invoices, _ := gw.Invoices(context.Background())
	if invoices[0].Notes != "updated" {
		t.Errorf("Expected notes saved, got %q", invoices[0].Notes)
	}
}

// =============================================================================
// DELIVERED TRANSITION
// =============================================================================

func TestApplyUpdate_DeliveredSnapshotMergesPatchOverCurrent(t *testing.T) {
	// GIVEN: An in-delivery invoice with existing field values
	gw := ledger.NewMemoryGateway()
	seedInvoice(t, gw, ledger.Invoice{
		ID:       "inv-1",
		Number:   "MOV0001",
		Supplier: "Store A",
		Store:    "Store B",
		Status:   ledger.StatusInDelivery,
		RawText:  "RIGA;Mozzarella;10;KG",
		Notes:    "old note",
	})
	gen := &captureGenerator{result: &ArtifactResult{Filename: "f.txt", Size: 20}}
	sm := NewStateMachine(gw, gen)

	delivered := ledger.StatusDelivered
	patch := ledger.InvoicePatch{
		Status:       &delivered,
		DeliveryDate: strPtr("2025-03-14"),
		ConfirmedBy:  strPtr("op@example.com"),
	}

	// WHEN: Confirming delivery
	result, err := sm.ApplyUpdate(context.Background(), "inv-1", patch)
	if err != nil {
		t.Fatalf("ApplyUpdate failed: %v", err)
	}

	// THEN: The generator saw patch values over current values
	if gen.snapshot == nil {
		t.Fatal("Generator was not called on delivered transition")
	}
	snap := *gen.snapshot
	if snap.Status != ledger.StatusDelivered {
		t.Errorf("Snapshot status: expected delivered, got %s", snap.Status)
	}
	if snap.DeliveryDate != "2025-03-14" {
		t.Errorf("Snapshot delivery date: expected 2025-03-14, got %s", snap.DeliveryDate)
	}
	if snap.ConfirmedBy != "op@example.com" {
		t.Errorf("Snapshot confirmedBy: expected op@example.com, got %s", snap.ConfirmedBy)
	}
	// Unpatched fields come from the current row
	if snap.Notes != "old note" || snap.RawText != "RIGA;Mozzarella;10;KG" {
		t.Errorf("Snapshot must keep unpatched fields, got notes=%q rawText=%q", snap.Notes, snap.RawText)
	}

	if result.Artifact == nil || !result.Artifact.Attempted || result.Artifact.Filename != "f.txt" {
		t.Errorf("Expected artifact outcome, got %+v", result.Artifact)
	}
}

func TestApplyUpdate_ArtifactFailureDoesNotFailUpdate(t *testing.T) {
	// GIVEN: A generator that always fails
	gw := ledger.NewMemoryGateway()
	seedInvoice(t, gw, ledger.Invoice{ID: "inv-1", Number: "MOV0001", Status: ledger.StatusInDelivery, RawText: "x"})
	gen := &captureGenerator{err: errors.New("disk full")}
	sm := NewStateMachine(gw, gen)

	delivered := ledger.StatusDelivered
	result, err := sm.ApplyUpdate(context.Background(), "inv-1", ledger.InvoicePatch{
		Status:       &delivered,
		DeliveryDate: strPtr("2025-03-14"),
	})

	// THEN: The confirmation succeeds, the failure rides along informationally
	if err != nil {
		t.Fatalf("Update must not fail when artifact generation fails: %v", err)
	}
	if !result.Updated {
		t.Error("Expected the row update to be committed")
	}
	if result.Artifact == nil || !result.Artifact.Attempted || result.Artifact.Err != "disk full" {
		t.Errorf("Expected attempted artifact with error, got %+v", result.Artifact)
	}

	// The status change is committed despite the artifact failure
	invoices, _ := gw.Invoices(context.Background())
	if invoices[0].Status != ledger.StatusDelivered {
		t.Errorf("Expected delivered committed, got %s", invoices[0].Status)
	}
}

func TestApplyUpdate_SkippedArtifactReported(t *testing.T) {
	gw := ledger.NewMemoryGateway()
	seedInvoice(t, gw, ledger.Invoice{ID: "inv-1", Number: "MOV0001", Status: ledger.StatusInDelivery})
	gen := &captureGenerator{result: &ArtifactResult{Skipped: true}}
	sm := NewStateMachine(gw, gen)

	delivered := ledger.StatusDelivered
	result, err := sm.ApplyUpdate(context.Background(), "inv-1", ledger.InvoicePatch{
		Status:       &delivered,
		DeliveryDate: strPtr("2025-03-14"),
	})
	if err != nil {
		t.Fatalf("ApplyUpdate failed: %v", err)
	}

	if result.Artifact == nil || !result.Artifact.Skipped {
		t.Errorf("Expected skipped artifact outcome, got %+v", result.Artifact)
	}
}

func TestApplyUpdate_NilGeneratorStillCommits(t *testing.T) {
	gw := ledger.NewMemoryGateway()
	seedInvoice(t, gw, ledger.Invoice{ID: "inv-1", Number: "MOV0001", Status: ledger.StatusInDelivery})
	sm := NewStateMachine(gw, nil)

	delivered := ledger.StatusDelivered
	result, err := sm.ApplyUpdate(context.Background(), "inv-1", ledger.InvoicePatch{
		Status:       &delivered,
		DeliveryDate: strPtr("2025-03-14"),
	})
	if err != nil {
		t.Fatalf("ApplyUpdate failed: %v", err)
	}
	if !result.Updated || result.Artifact == nil || result.Artifact.Err == "" {
		t.Errorf("Expected committed update with informational artifact error, got %+v", result)
	}
}
