/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - auth.go: Login request/response
*/
package api

import (
	"time"

	"github.com/retailops/delivery-engine/artifact"
	"github.com/retailops/delivery-engine/invoice"
	"github.com/retailops/delivery-engine/ledger"
)

// =============================================================================
// AUTH
// =============================================================================

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserDTO represents a directory user in API responses.
type UserDTO struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Store string `json:"store"`
	Role  string `json:"role"`
}

// LoginResponse carries the signed token and the user it belongs to.
type LoginResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// =============================================================================
// INVOICES
// =============================================================================

// InvoiceDTO represents an invoice in API responses.
type InvoiceDTO struct {
	ID           string `json:"id"`
	Number       string `json:"number"`
	Supplier     string `json:"supplier"`
	IssueDate    string `json:"issue_date,omitempty"`
	DeliveryDate string `json:"delivery_date,omitempty"`
	Status       string `json:"status"`
	Store        string `json:"store"`
	ConfirmedBy  string `json:"confirmed_by,omitempty"`
	Notes        string `json:"notes,omitempty"`
	SupplierCode string `json:"supplier_code,omitempty"`
	HasRawText   bool   `json:"has_raw_text"`
}

// ConfirmDeliveryRequest confirms physical delivery of an invoice.
type ConfirmDeliveryRequest struct {
	DeliveryDate string `json:"delivery_date"`
	ErrorNotes   string `json:"error_notes,omitempty"`
}

// EditInvoiceRequest edits invoice fields without forcing a transition.
type EditInvoiceRequest struct {
	DeliveryDate *string `json:"delivery_date,omitempty"`
	ConfirmedBy  *string `json:"confirmed_by,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

// ArtifactOutcomeDTO is the informational artifact report riding along
// with a committed update.
type ArtifactOutcomeDTO struct {
	Attempted bool   `json:"attempted"`
	Filename  string `json:"filename,omitempty"`
	Size      int    `json:"size,omitempty"`
	HasErrors bool   `json:"has_errors,omitempty"`
	Skipped   bool   `json:"skipped,omitempty"`
	Error     string `json:"error,omitempty"`
}

// UpdateInvoiceResponse reports a committed invoice update.
type UpdateInvoiceResponse struct {
	Updated  bool                `json:"updated"`
	Artifact *ArtifactOutcomeDTO `json:"artifact,omitempty"`
}

// =============================================================================
// MOVEMENTS
// =============================================================================

// MovementDTO represents a movement in API responses.
type MovementDTO struct {
	ID              string  `json:"id"`
	MovementDate    string  `json:"movement_date"`
	Timestamp       string  `json:"timestamp"`
	Origin          string  `json:"origin"`
	OriginCode      string  `json:"origin_code,omitempty"`
	Product         string  `json:"product"`
	Quantity        float64 `json:"quantity"`
	Unit            string  `json:"unit,omitempty"`
	Destination     string  `json:"destination"`
	DestinationCode string  `json:"destination_code,omitempty"`
	Status          string  `json:"status"`
	CreatedBy       string  `json:"created_by,omitempty"`
}

// MovementEntryRequest is one submitted transfer line.
type MovementEntryRequest struct {
	Origin          string  `json:"origin,omitempty"`
	OriginCode      string  `json:"origin_code,omitempty"`
	Product         string  `json:"product"`
	Quantity        float64 `json:"quantity"`
	Unit            string  `json:"unit,omitempty"`
	Destination     string  `json:"destination"`
	DestinationCode string  `json:"destination_code,omitempty"`
	RawText         string  `json:"raw_text,omitempty"`
	RawTextFilename string  `json:"raw_text_filename,omitempty"`
}

// RecordMovementsRequest submits a batch of transfers from one origin.
type RecordMovementsRequest struct {
	Origin    string                 `json:"origin"`
	Movements []MovementEntryRequest `json:"movements"`
}

// RecordMovementsResponse reports granular batch results.
type RecordMovementsResponse struct {
	MovementsInserted int      `json:"movements_inserted"`
	InvoicesDerived   int      `json:"invoices_derived"`
	InvoicesFailed    int      `json:"invoices_failed"`
	InvoiceNumbers    []string `json:"invoice_numbers,omitempty"`
}

// =============================================================================
// ARTIFACTS
// =============================================================================

// ArtifactFileDTO represents one artifact in listings.
type ArtifactFileDTO struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Created   string `json:"created"`
	Modified  string `json:"modified"`
	Date      string `json:"date,omitempty"`
	HasErrors bool   `json:"has_errors"`
}

// ArtifactContentResponse carries a read artifact.
type ArtifactContentResponse struct {
	Filename     string `json:"filename"`
	Content      string `json:"content"`
	Size         int    `json:"size"`
	HasErrors    bool   `json:"has_errors"`
	ErrorDetails string `json:"error_details,omitempty"`
}

// UpdateArtifactRequest replaces artifact content.
type UpdateArtifactRequest struct {
	Content string `json:"content"`
}

// DateGroupDTO summarizes one delivery date.
type DateGroupDTO struct {
	Date      string            `json:"date"`
	FileCount int               `json:"file_count"`
	TotalSize int64             `json:"total_size"`
	Files     []ArtifactFileDTO `json:"files"`
}

// StatsResponse is the aggregate artifact view.
type StatsResponse struct {
	TotalFiles int            `json:"total_files"`
	TotalDates int            `json:"total_dates"`
	Unparsed   []string       `json:"unparsed,omitempty"`
	DateGroups []DateGroupDTO `json:"date_groups"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toInvoiceDTO(inv ledger.Invoice) InvoiceDTO {
	return InvoiceDTO{
		ID:           inv.ID,
		Number:       inv.Number,
		Supplier:     inv.Supplier,
		IssueDate:    inv.IssueDate,
		DeliveryDate: inv.DeliveryDate,
		Status:       string(inv.Status),
		Store:        inv.Store,
		ConfirmedBy:  inv.ConfirmedBy,
		Notes:        inv.Notes,
		SupplierCode: inv.SupplierCode,
		HasRawText:   inv.RawText != "",
	}
}

func toMovementDTO(mv ledger.Movement) MovementDTO {
	qty, _ := mv.Quantity.Float64()
	return MovementDTO{
		ID:              mv.ID,
		MovementDate:    mv.MovementDate,
		Timestamp:       mv.Timestamp.UTC().Format(time.RFC3339),
		Origin:          mv.Origin,
		OriginCode:      mv.OriginCode,
		Product:         mv.Product,
		Quantity:        qty,
		Unit:            mv.Unit,
		Destination:     mv.Destination,
		DestinationCode: mv.DestinationCode,
		Status:          mv.Status,
		CreatedBy:       mv.CreatedBy,
	}
}

func toArtifactFileDTO(info artifact.Info) ArtifactFileDTO {
	return ArtifactFileDTO{
		Name:      info.Name,
		Size:      info.Size,
		Created:   info.Created.UTC().Format(time.RFC3339),
		Modified:  info.Modified.UTC().Format(time.RFC3339),
		Date:      info.Date,
		HasErrors: info.HasErrors,
	}
}

func toArtifactOutcomeDTO(o *invoice.ArtifactOutcome) *ArtifactOutcomeDTO {
	if o == nil {
		return nil
	}
	return &ArtifactOutcomeDTO{
		Attempted: o.Attempted,
		Filename:  o.Filename,
		Size:      o.Size,
		HasErrors: o.HasErrors,
		Skipped:   o.Skipped,
		Error:     o.Err,
	}
}
