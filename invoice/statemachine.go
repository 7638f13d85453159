/*
statemachine.go - Invoice field updates and the delivered transition

PURPOSE:
  All invoice mutations flow through here. ApplyUpdate patches a row by
  id and, when the patch moves the invoice to delivered, hands a
  consistent snapshot of the committed values to the artifact generator.

SNAPSHOT SEMANTICS:
  The snapshot fed to artifact generation is the current row merged with
  the patch (patch wins), captured BEFORE the save. Generation must
  reflect exactly the values being committed in this call, not whatever
  a later read would return.

TWO-PHASE CONTRACT:
  1. Commit the row update (primary; failures surface to the caller).
  2. Attempt artifact generation (secondary; failures are logged and
     reported informationally, never rolled back, never surfaced as a
     failure of the confirmation).

STATES:
  pending -> in_delivery -> delivered. Delivered is terminal here; the
  state machine never transitions backwards. Field-only edits
  (deliveryDate, confirmedBy, notes) may leave the status untouched.

SEE ALSO:
  - artifact/manager.go: Generate
  - ledger/gateway.go: UpdateInvoice
*/
package invoice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/retailops/delivery-engine/ledger"
)

// =============================================================================
// ARTIFACT HOOK
// =============================================================================

// ArtifactResult reports the outcome of a generation attempt.
type ArtifactResult struct {
	Filename  string
	Size      int
	HasErrors bool
	Skipped   bool // empty rawText: legitimate, no file written
}

// ArtifactGenerator is implemented by artifact.Manager. The state machine
// only knows how to hand over a snapshot.
type ArtifactGenerator interface {
	Generate(ctx context.Context, snap ledger.Invoice) (*ArtifactResult, error)
}

// =============================================================================
// STATE MACHINE
// =============================================================================

// ArtifactOutcome is the informational artifact report attached to an
// update result. Err is the message of a swallowed generation failure.
type ArtifactOutcome struct {
	Attempted bool
	Filename  string
	Size      int
	HasErrors bool
	Skipped   bool
	Err       string
}

// UpdateResult reports a committed update plus the artifact outcome.
type UpdateResult struct {
	Updated  bool
	Artifact *ArtifactOutcome
}

// StateMachine applies patches to invoice rows.
type StateMachine struct {
	gw        ledger.Gateway
	artifacts ArtifactGenerator
	log       *slog.Logger
}

// NewStateMachine creates a state machine. artifacts may be nil, in which
// case delivered transitions commit without generating anything.
func NewStateMachine(gw ledger.Gateway, artifacts ArtifactGenerator) *StateMachine {
	return &StateMachine{
		gw:        gw,
		artifacts: artifacts,
		log:       slog.Default(),
	}
}

// ApplyUpdate patches the invoice with the given id.
//
// The row update is the primary operation: its failure is the caller's
// failure. Artifact generation on the delivered transition is secondary
// and best-effort; its outcome rides along in the result.
func (m *StateMachine) ApplyUpdate(ctx context.Context, id string, patch ledger.InvoicePatch) (*UpdateResult, error) {
	if patch.IsEmpty() {
		return nil, &ledger.FieldError{Field: "patch", Reason: "no fields to update"}
	}

	rows, err := m.gw.Invoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read invoices: %v", ledger.ErrUpstream, err)
	}
	var current *ledger.Invoice
	for i := range rows {
		if rows[i].ID == id {
			current = &rows[i]
			break
		}
	}
	if current == nil {
		return nil, ledger.ErrInvoiceNotFound
	}

	// Snapshot before saving: committed values, not a post-save re-read.
	snapshot := patch.ApplyTo(*current)

	if err := m.gw.UpdateInvoice(ctx, id, patch); err != nil {
		if ledger.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: update invoice %s: %v", ledger.ErrUpstream, id, err)
	}

	result := &UpdateResult{Updated: true}
	if patch.Status != nil && *patch.Status == ledger.StatusDelivered {
		result.Artifact = m.generateArtifact(ctx, snapshot)
	}
	return result, nil
}

// generateArtifact never returns an error: the transition is already
// committed and must not be reported as failed because of the artifact.
func (m *StateMachine) generateArtifact(ctx context.Context, snap ledger.Invoice) *ArtifactOutcome {
	outcome := &ArtifactOutcome{Attempted: true}
	if m.artifacts == nil {
		outcome.Err = "no artifact generator configured"
		return outcome
	}

	res, err := m.artifacts.Generate(ctx, snap)
	if err != nil {
		outcome.Err = err.Error()
		m.log.Error("artifact generation failed after delivered transition",
			"invoice_id", snap.ID,
			"number", snap.Number,
			"error", err)
		return outcome
	}

	outcome.Filename = res.Filename
	outcome.Size = res.Size
	outcome.HasErrors = res.HasErrors
	outcome.Skipped = res.Skipped
	if res.Skipped {
		m.log.Info("artifact skipped: empty raw text",
			"invoice_id", snap.ID,
			"number", snap.Number)
	}
	return outcome
}
