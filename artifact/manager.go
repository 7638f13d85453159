/*
manager.go - Artifact lifecycle operations

PURPOSE:
  Implements generate/list/read/update/delete for invoice txt artifacts.
  The destructive operations (update, delete) follow backup-before-mutate:
  the current bytes are copied to a timestamped backup file first, and the
  destructive step does not proceed unless the backup write succeeded.

GENERATION:
  Generate receives the invoice snapshot committed by the delivered
  transition. Empty raw text is a legitimate case: no file is written and
  the result says "skipped". Regenerating for the same number/date/
  supplier/store overwrites the prior file; artifact versioning across
  repeated confirmations is intentionally not provided.

LEDGER ACCESS:
  The manager reads the ledger only to resolve discrepancy notes for an
  error-flagged artifact. That lookup is best-effort: failures are logged
  and surfaced as "no details available", never as a request failure.

SEE ALSO:
  - naming.go: filename grammar
  - export.go: ZIP export and statistics
  - invoice/statemachine.go: the delivered transition calling Generate
*/
package artifact

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/retailops/delivery-engine/invoice"
	"github.com/retailops/delivery-engine/ledger"
)

// =============================================================================
// MANAGER
// =============================================================================

// Info describes one artifact with the error flag as a first-class field
// rather than something callers parse out of the name.
type Info struct {
	Name      string
	Size      int64
	Created   time.Time
	Modified  time.Time
	Date      string // extracted YYYY-MM-DD, "" when unparsable
	HasErrors bool
}

// Content is a read artifact plus resolved discrepancy details.
type Content struct {
	Filename     string
	Content      string
	Size         int
	HasErrors    bool
	ErrorDetails string // "" means no details available
}

// Manager owns naming, storage and retrieval of artifacts.
type Manager struct {
	store     Store
	gw        ledger.Gateway        // optional, read-only notes lookup
	storeCode func(store string) string
	log       *slog.Logger
	now       func() time.Time
}

// NewManager creates a manager. gw may be nil (no discrepancy lookups).
// storeCode may be nil, in which case the last word of the store name is
// used, matching how location codes abbreviate store names.
func NewManager(store Store, gw ledger.Gateway, storeCode func(string) string) *Manager {
	if storeCode == nil {
		storeCode = DefaultStoreCode
	}
	return &Manager{
		store:     store,
		gw:        gw,
		storeCode: storeCode,
		log:       slog.Default(),
		now:       time.Now,
	}
}

// DefaultStoreCode abbreviates a store name to its last word, or UNKNOWN
// when the name is empty.
func DefaultStoreCode(store string) string {
	fields := strings.Fields(store)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	return fields[len(fields)-1]
}

// =============================================================================
// GENERATE
// =============================================================================

// Generate writes the artifact for a delivered invoice snapshot.
//
// Number, delivery date and supplier are required; missing any of them is
// a validation error and no partial file is written. Whitespace-only raw
// text yields a skipped result, not an error. Non-empty notes flag the
// artifact as carrying delivery discrepancies via the filename suffix;
// the content itself is always the snapshot's raw text verbatim.
func (m *Manager) Generate(_ context.Context, snap ledger.Invoice) (*invoice.ArtifactResult, error) {
	if snap.Number == "" {
		return nil, &ledger.FieldError{Field: "number", Reason: "required for artifact"}
	}
	if snap.DeliveryDate == "" {
		return nil, &ledger.FieldError{Field: "deliveryDate", Reason: "required for artifact"}
	}
	if snap.Supplier == "" {
		return nil, &ledger.FieldError{Field: "supplier", Reason: "required for artifact"}
	}

	if strings.TrimSpace(snap.RawText) == "" {
		return &invoice.ArtifactResult{Skipped: true}, nil
	}

	hasErrors := strings.TrimSpace(snap.Notes) != ""
	name := Filename(snap.Number, snap.DeliveryDate, snap.Supplier, m.storeCode(snap.Store), hasErrors)

	if err := m.store.Write(name, []byte(snap.RawText)); err != nil {
		return nil, err
	}

	m.log.Info("artifact written",
		"filename", name,
		"size", len(snap.RawText),
		"has_errors", hasErrors)

	return &invoice.ArtifactResult{
		Filename:  name,
		Size:      len(snap.RawText),
		HasErrors: hasErrors,
	}, nil
}

// =============================================================================
// LIST / READ
// =============================================================================

// List returns all artifacts (backups excluded), newest created first.
func (m *Manager) List() ([]Info, error) {
	stats, err := m.store.List()
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(stats))
	for _, st := range stats {
		if !strings.HasSuffix(st.Name, Extension) || IsBackup(st.Name) {
			continue
		}
		infos = append(infos, infoFromStat(st))
	}
	sortByCreatedDesc(infos)
	return infos, nil
}

// ReadContent returns the artifact content and, for error-flagged
// artifacts, attempts to resolve the discrepancy notes from the ledger.
func (m *Manager) ReadContent(ctx context.Context, name string) (*Content, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	data, err := m.store.Read(name)
	if err != nil {
		return nil, err
	}

	c := &Content{
		Filename:  name,
		Content:   string(data),
		Size:      len(data),
		HasErrors: HasErrorFlag(name),
	}
	if c.HasErrors {
		c.ErrorDetails = m.lookupNotes(ctx, name)
	}
	return c, nil
}

// lookupNotes matches the leading number token against ledger invoices
// with non-empty notes. Any failure degrades to "no details available".
func (m *Manager) lookupNotes(ctx context.Context, name string) string {
	if m.gw == nil {
		return ""
	}
	number := NumberToken(name)
	invoices, err := m.gw.Invoices(ctx)
	if err != nil {
		m.log.Warn("discrepancy lookup failed", "filename", name, "error", err)
		return ""
	}
	for _, inv := range invoices {
		if inv.Number == number && strings.TrimSpace(inv.Notes) != "" {
			return inv.Notes
		}
	}
	return ""
}

// =============================================================================
// UPDATE / DELETE (backup-before-mutate)
// =============================================================================

// UpdateContent overwrites the artifact after backing up the current
// bytes. Returns the new size.
func (m *Manager) UpdateContent(name, content string) (int, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}

	current, err := m.store.Read(name)
	if err != nil {
		return 0, err
	}

	backup := fmt.Sprintf("%s%s%d", name, BackupMarker, m.now().UnixMilli())
	if err := m.store.Write(backup, current); err != nil {
		return 0, fmt.Errorf("backup before update: %w", err)
	}

	if err := m.store.Write(name, []byte(content)); err != nil {
		return 0, err
	}

	m.log.Info("artifact updated", "filename", name, "backup", backup, "size", len(content))
	return len(content), nil
}

// Delete removes the artifact after backing up the current bytes under a
// DELETED_ prefixed backup name.
func (m *Manager) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	current, err := m.store.Read(name)
	if err != nil {
		return err
	}

	backup := fmt.Sprintf("%s%s%s%d", DeletedPrefix, name, BackupMarker, m.now().UnixMilli())
	if err := m.store.Write(backup, current); err != nil {
		return fmt.Errorf("backup before delete: %w", err)
	}

	if err := m.store.Delete(name); err != nil {
		return err
	}

	m.log.Info("artifact deleted", "filename", name, "backup", backup)
	return nil
}

// =============================================================================
// DATE-BASED RETRIEVAL
// =============================================================================

// ListByDate returns artifacts whose extracted date matches exactly.
func (m *Manager) ListByDate(date string) ([]Info, error) {
	all, err := m.List()
	if err != nil {
		return nil, err
	}

	var matched []Info
	for _, info := range all {
		if info.Date == date {
			matched = append(matched, info)
		}
	}
	return matched, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func infoFromStat(st FileStat) Info {
	return Info{
		Name:      st.Name,
		Size:      st.Size,
		Created:   st.Created,
		Modified:  st.Modified,
		Date:      ExtractDate(st.Name),
		HasErrors: HasErrorFlag(st.Name),
	}
}

func sortByCreatedDesc(infos []Info) {
	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].Created.After(infos[j].Created)
	})
}
