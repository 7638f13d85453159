/*
naming.go - Artifact filename grammar

PURPOSE:
  One place for the filename conventions the external accounting tooling
  depends on:

    <number>_<YYYY-MM-DD>_<supplier>_<storeCode>[_ERRORI].txt

  Backup files suffix the original name with ".backup.<epoch-millis>";
  deletion backups additionally prefix "DELETED_".

ERROR FLAG:
  The _ERRORI suffix is the externally visible signal that the delivery
  carried discrepancies. Internally the flag travels as a first-class
  field (Info.HasErrors, Content.HasErrors); only this file inspects the
  string.

DATE EXTRACTION:
  Historical naming conventions put the date in different positions, so
  retrieval matches the FIRST YYYY-MM-DD substring found anywhere in the
  name rather than a fixed token.
*/
package artifact

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/retailops/delivery-engine/ledger"
)

const (
	// Extension is the only accepted artifact extension.
	Extension = ".txt"

	// BackupMarker appears in every backup filename and excludes the file
	// from listings, exports and statistics.
	BackupMarker = ".backup."

	// DeletedPrefix marks backups taken right before a delete.
	DeletedPrefix = "DELETED_"

	// errorSuffix marks artifacts whose delivery carried discrepancies.
	errorSuffix = "_ERRORI"
)

var (
	unsafeChars = regexp.MustCompile(`[/\\:*?"<>|]+`)
	whitespace  = regexp.MustCompile(`\s+`)
	underscores = regexp.MustCompile(`_+`)
	dateToken   = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	exactDate   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Sanitize makes a name component filesystem-safe: path-unsafe characters
// and whitespace runs become single underscores, repeats collapse, edges
// are trimmed.
func Sanitize(s string) string {
	s = whitespace.ReplaceAllString(strings.TrimSpace(s), "_")
	s = unsafeChars.ReplaceAllString(s, "_")
	s = underscores.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// Filename composes the artifact name for a delivered invoice.
func Filename(number, deliveryDate, supplier, storeCode string, hasErrors bool) string {
	name := fmt.Sprintf("%s_%s_%s_%s",
		Sanitize(number), Sanitize(deliveryDate), Sanitize(supplier), Sanitize(storeCode))
	if hasErrors {
		name += errorSuffix
	}
	return name + Extension
}

// ValidateName rejects names that could escape the artifact directory or
// reference non-artifact files.
func ValidateName(name string) error {
	if !strings.HasSuffix(name, Extension) || len(name) <= len(Extension) {
		return &ledger.FieldError{Field: "filename", Reason: "must end in " + Extension}
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return &ledger.FieldError{Field: "filename", Reason: "path traversal not allowed"}
	}
	return nil
}

// ValidateDate checks the YYYY-MM-DD shape used by exports and statistics.
func ValidateDate(date string) error {
	if !exactDate.MatchString(date) {
		return &ledger.FieldError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	return nil
}

// ExtractDate returns the first YYYY-MM-DD substring in the name, or ""
// when no date is recognizable.
func ExtractDate(name string) string {
	return dateToken.FindString(name)
}

// IsBackup reports whether the name belongs to a backup file.
func IsBackup(name string) bool {
	return strings.Contains(name, BackupMarker)
}

// HasErrorFlag derives the discrepancy flag from the name suffix.
func HasErrorFlag(name string) bool {
	return strings.HasSuffix(strings.TrimSuffix(name, Extension), errorSuffix)
}

// NumberToken returns the leading invoice-number token of an artifact
// name, used for the best-effort discrepancy lookup in the ledger.
func NumberToken(name string) string {
	base := strings.TrimSuffix(name, Extension)
	if i := strings.IndexByte(base, '_'); i > 0 {
		return base[:i]
	}
	return base
}
