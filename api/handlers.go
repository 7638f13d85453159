/*
handlers.go - HTTP API handlers for the delivery engine

PURPOSE:
  Exposes the delivery engine via REST API. Handles HTTP request/response,
  JSON serialization, per-store filtering, and delegates to domain logic.

ENDPOINTS:
  Auth:
    POST   /api/auth/login               Authenticate, get token
    GET    /api/auth/verify              Current user
    POST   /api/auth/logout              Stateless logout

  Invoices:
    GET    /api/invoices                 List (filtered to caller's store)
    POST   /api/invoices/{id}/confirm    Confirm physical delivery
    PUT    /api/invoices/{id}            Edit fields

  Movements:
    GET    /api/movements                List (filtered to caller's store)
    POST   /api/movements                Record a transfer batch

  Artifacts:
    GET    /api/txt-files                List artifacts
    GET    /api/txt-files/stats/by-date  Per-date statistics
    GET    /api/txt-files/export/{date}  ZIP of one date
    GET    /api/txt-files/{filename}     Download as attachment
    GET    /api/txt-files/{filename}/content   Read content + details
    PUT    /api/txt-files/{filename}/content   Update (backup first)
    DELETE /api/txt-files/{filename}     Delete (backup first)

  Misc:
    GET    /api/health                   Liveness (unauthenticated)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: Missing/invalid token
  - 403: Operator acting outside their store
  - 404: Unknown invoice or artifact
  - 500: Upstream/IO failures

PER-STORE FILTERING:
  Operators see only invoices for their store and movements originating
  from it. Admins see everything and may record for any origin.

SEE ALSO:
  - dto.go: Request/response data structures
  - auth.go: Login and bearer middleware
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/retailops/delivery-engine/artifact"
	"github.com/retailops/delivery-engine/directory"
	"github.com/retailops/delivery-engine/invoice"
	"github.com/retailops/delivery-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Gateway      ledger.Gateway
	Recorder     *invoice.Recorder
	StateMachine *invoice.StateMachine
	Artifacts    *artifact.Manager
	Directory    *directory.Directory
	Auth         AuthConfig
}

// NewHandler creates a handler with all dependencies wired.
func NewHandler(gw ledger.Gateway, rec *invoice.Recorder, sm *invoice.StateMachine,
	artifacts *artifact.Manager, dir *directory.Directory, auth AuthConfig) *Handler {
	return &Handler{
		Gateway:      gw,
		Recorder:     rec,
		StateMachine: sm,
		Artifacts:    artifacts,
		Directory:    dir,
		Auth:         auth,
	}
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// ListInvoices returns invoices, operators filtered to their store.
// GET /api/invoices
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	invoices, err := h.Gateway.Invoices(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load invoices", err)
		return
	}

	dtos := make([]InvoiceDTO, 0, len(invoices))
	for _, inv := range invoices {
		if !user.IsAdmin() && inv.Store != user.Store {
			continue
		}
		dtos = append(dtos, toInvoiceDTO(inv))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": dtos})
}

// ConfirmDelivery marks the invoice delivered, recording date, confirmer
// and optional discrepancy notes. The artifact outcome is informational.
// POST /api/invoices/{id}/confirm
func (h *Handler) ConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user, _ := userFrom(r.Context())

	var req ConfirmDeliveryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateDeliveryDate(req.DeliveryDate); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid delivery date", err)
		return
	}

	delivered := ledger.StatusDelivered
	patch := ledger.InvoicePatch{
		Status:       &delivered,
		DeliveryDate: &req.DeliveryDate,
		ConfirmedBy:  &user.Email,
	}
	if req.ErrorNotes != "" {
		patch.Notes = &req.ErrorNotes
	}

	result, err := h.StateMachine.ApplyUpdate(r.Context(), id, patch)
	if err != nil {
		writeDomainError(w, "Failed to confirm delivery", err)
		return
	}

	writeJSON(w, http.StatusOK, UpdateInvoiceResponse{
		Updated:  result.Updated,
		Artifact: toArtifactOutcomeDTO(result.Artifact),
	})
}

// EditInvoice applies field-only edits without forcing a transition.
// PUT /api/invoices/{id}
func (h *Handler) EditInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req EditInvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	patch := ledger.InvoicePatch{
		DeliveryDate: req.DeliveryDate,
		ConfirmedBy:  req.ConfirmedBy,
		Notes:        req.Notes,
	}
	if patch.IsEmpty() {
		writeError(w, http.StatusBadRequest, "No fields to update", nil)
		return
	}
	if req.DeliveryDate != nil {
		if err := validateDeliveryDate(*req.DeliveryDate); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid delivery date", err)
			return
		}
	}

	result, err := h.StateMachine.ApplyUpdate(r.Context(), id, patch)
	if err != nil {
		writeDomainError(w, "Failed to update invoice", err)
		return
	}

	writeJSON(w, http.StatusOK, UpdateInvoiceResponse{
		Updated:  result.Updated,
		Artifact: toArtifactOutcomeDTO(result.Artifact),
	})
}

// =============================================================================
// MOVEMENT HANDLERS
// =============================================================================

// ListMovements returns movements, operators filtered to their origin.
// GET /api/movements
func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	movements, err := h.Gateway.Movements(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load movements", err)
		return
	}

	dtos := make([]MovementDTO, 0, len(movements))
	for _, mv := range movements {
		if !user.IsAdmin() && mv.Origin != user.Store {
			continue
		}
		dtos = append(dtos, toMovementDTO(mv))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": dtos})
}

// RecordMovements persists a transfer batch and derives pending invoices.
// POST /api/movements
func (h *Handler) RecordMovements(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	var req RecordMovementsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if !user.IsAdmin() && req.Origin != user.Store {
		writeError(w, http.StatusForbidden, "Not authorized for this origin store", nil)
		return
	}

	entries := make([]invoice.MovementEntry, len(req.Movements))
	for i, m := range req.Movements {
		entries[i] = invoice.MovementEntry{
			Origin:          m.Origin,
			OriginCode:      m.OriginCode,
			Product:         m.Product,
			Quantity:        decimal.NewFromFloat(m.Quantity),
			Unit:            m.Unit,
			Destination:     m.Destination,
			DestinationCode: m.DestinationCode,
			RawText:         m.RawText,
			RawTextFilename: m.RawTextFilename,
		}
	}

	result, err := h.Recorder.Record(r.Context(), req.Origin, entries, user.Email)
	if err != nil {
		writeDomainError(w, "Failed to record movements", err)
		return
	}

	writeJSON(w, http.StatusCreated, RecordMovementsResponse{
		MovementsInserted: result.MovementsInserted,
		InvoicesDerived:   result.InvoicesDerived,
		InvoicesFailed:    result.InvoicesFailed,
		InvoiceNumbers:    result.InvoiceNumbers,
	})
}

// =============================================================================
// ARTIFACT HANDLERS
// =============================================================================

// ListArtifacts returns all artifacts, newest first.
// GET /api/txt-files
func (h *Handler) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	infos, err := h.Artifacts.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list artifacts", err)
		return
	}

	dtos := make([]ArtifactFileDTO, len(infos))
	for i, info := range infos {
		dtos[i] = toArtifactFileDTO(info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": dtos})
}

// DownloadArtifact streams one artifact as a text attachment.
// GET /api/txt-files/{filename}
func (h *Handler) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	content, err := h.Artifacts.ReadContent(r.Context(), name)
	if err != nil {
		writeDomainError(w, "Failed to read artifact", err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write([]byte(content.Content))
}

// GetArtifactContent returns content plus resolved discrepancy details.
// GET /api/txt-files/{filename}/content
func (h *Handler) GetArtifactContent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	content, err := h.Artifacts.ReadContent(r.Context(), name)
	if err != nil {
		writeDomainError(w, "Failed to read artifact", err)
		return
	}

	resp := ArtifactContentResponse{
		Filename:     content.Filename,
		Content:      content.Content,
		Size:         content.Size,
		HasErrors:    content.HasErrors,
		ErrorDetails: content.ErrorDetails,
	}
	if resp.HasErrors && resp.ErrorDetails == "" {
		resp.ErrorDetails = "no details available"
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateArtifactContent overwrites content after a backup.
// PUT /api/txt-files/{filename}/content
func (h *Handler) UpdateArtifactContent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	var req UpdateArtifactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	size, err := h.Artifacts.UpdateContent(name, req.Content)
	if err != nil {
		writeDomainError(w, "Failed to update artifact", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"filename":       name,
		"size":           size,
		"backup_created": true,
	})
}

// DeleteArtifact removes the file after a backup.
// DELETE /api/txt-files/{filename}
func (h *Handler) DeleteArtifact(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	if err := h.Artifacts.Delete(name); err != nil {
		writeDomainError(w, "Failed to delete artifact", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"filename":       name,
		"backup_created": true,
	})
}

// ExportArtifactsByDate streams a ZIP of one date's artifacts.
// GET /api/txt-files/export/{date}
func (h *Handler) ExportArtifactsByDate(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")

	// Pre-flight before headers are committed: the export itself streams.
	if err := artifact.ValidateDate(date); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format, use YYYY-MM-DD", err)
		return
	}
	matched, err := h.Artifacts.ListByDate(date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list artifacts", err)
		return
	}
	if len(matched) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("No artifacts for date %s", date), nil)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "TXT_Files_"+date+".zip"))

	if _, err := h.Artifacts.ExportZip(date, w); err != nil {
		// Headers are already sent; nothing more to report to the client.
		return
	}
}

// ArtifactStats returns per-date artifact statistics.
// GET /api/txt-files/stats/by-date
func (h *Handler) ArtifactStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Artifacts.StatsByDate()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute statistics", err)
		return
	}

	resp := StatsResponse{
		TotalFiles: stats.TotalFiles,
		TotalDates: stats.TotalDates,
		Unparsed:   stats.Unparsed,
		DateGroups: make([]DateGroupDTO, len(stats.Groups)),
	}
	for i, g := range stats.Groups {
		files := make([]ArtifactFileDTO, len(g.Files))
		for j, f := range g.Files {
			files[j] = toArtifactFileDTO(f)
		}
		resp.DateGroups[i] = DateGroupDTO{
			Date:      g.Date,
			FileCount: g.FileCount,
			TotalSize: g.TotalSize,
			Files:     files,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// MISC
// =============================================================================

// Health is the unauthenticated liveness endpoint.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// validateDeliveryDate requires YYYY-MM-DD and rejects future dates;
// deliveries are confirmed after the fact, never scheduled. The
// comparison is between calendar dates in local time, so today's date
// is accepted at any hour regardless of the UTC offset.
func validateDeliveryDate(date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("use YYYY-MM-DD: %w", err)
	}
	if date > time.Now().Format("2006-01-02") {
		return fmt.Errorf("delivery date %s is in the future", date)
	}
	return nil
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the ledger error taxonomy to HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
