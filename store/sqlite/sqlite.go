/*
Package sqlite provides a SQLite-backed implementation of the ledger
Gateway.

PURPOSE:
  Implements ledger.Gateway using SQLite. The ledger is conceptually an
  opaque tabular store with read-all / append / update-by-key semantics;
  this package keeps to those primitives and builds nothing richer.

TABLES:
  invoices:  one row per invoice; id is NOT unique at the storage level.
             External data entry can produce duplicates, so reads collapse
             duplicate ids to the first occurrence (lowest rowid) and
             updates target the first occurrence only.
  movements: append-only transfer log, never updated or deleted.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. The domain performs no locking of
  its own and accepts last-writer-wins on concurrent updates.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, single writer at a time.

USAGE:
  gw, err := sqlite.New("./data/delivery.db")
  if err != nil {
      log.Fatal(err)
  }
  defer gw.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/gateway.go: Interface definition
  - ledger/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/retailops/delivery-engine/ledger"
)

// Gateway implements ledger.Gateway using SQLite.
type Gateway struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite gateway with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Gateway, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	gw := &Gateway{db: db}
	if err := gw.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return gw, nil
}

// Close closes the database connection.
func (g *Gateway) Close() error {
	return g.db.Close()
}

// migrate creates the database schema.
func (g *Gateway) migrate() error {
	schema := `
	-- Invoices. id is intentionally NOT a primary key: the upstream data
	-- entry offers no uniqueness guarantee, and reads collapse duplicates.
	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT NOT NULL,
		number TEXT NOT NULL DEFAULT '',
		supplier TEXT NOT NULL DEFAULT '',
		issue_date TEXT NOT NULL DEFAULT '',
		delivery_date TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		store TEXT NOT NULL DEFAULT '',
		confirmed_by TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		raw_text TEXT NOT NULL DEFAULT '',
		supplier_code TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_id ON invoices(id);
	CREATE INDEX IF NOT EXISTS idx_invoices_store ON invoices(store);
	CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices(status);
	CREATE INDEX IF NOT EXISTS idx_invoices_number ON invoices(number);

	-- Movements (append-only transfer log)
	CREATE TABLE IF NOT EXISTS movements (
		id TEXT NOT NULL,
		movement_date TEXT NOT NULL DEFAULT '',
		timestamp TEXT NOT NULL,
		origin TEXT NOT NULL DEFAULT '',
		origin_code TEXT NOT NULL DEFAULT '',
		product TEXT NOT NULL DEFAULT '',
		quantity TEXT NOT NULL DEFAULT '0',
		unit TEXT NOT NULL DEFAULT '',
		destination TEXT NOT NULL DEFAULT '',
		destination_code TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'registered',
		raw_text TEXT NOT NULL DEFAULT '',
		raw_text_filename TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_movements_origin ON movements(origin);
	CREATE INDEX IF NOT EXISTS idx_movements_timestamp ON movements(timestamp DESC);
	`

	_, err := g.db.Exec(schema)
	return err
}

// =============================================================================
// INVOICES
// =============================================================================

// Invoices returns every invoice row in insertion order, duplicate ids
// collapsed to the first occurrence.
func (g *Gateway) Invoices(ctx context.Context) ([]ledger.Invoice, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	query := `
		SELECT id, number, supplier, issue_date, delivery_date, status,
		       store, confirmed_by, notes, raw_text, supplier_code
		FROM invoices
		ORDER BY rowid
	`
	rows, err := g.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query invoices: %v", ledger.ErrUpstream, err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var invoices []ledger.Invoice
	for rows.Next() {
		var inv ledger.Invoice
		var status string
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.Supplier, &inv.IssueDate,
			&inv.DeliveryDate, &status, &inv.Store, &inv.ConfirmedBy,
			&inv.Notes, &inv.RawText, &inv.SupplierCode); err != nil {
			return nil, fmt.Errorf("%w: scan invoice: %v", ledger.ErrUpstream, err)
		}
		if seen[inv.ID] {
			continue
		}
		seen[inv.ID] = true
		inv.Status = ledger.InvoiceStatus(status)
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate invoices: %v", ledger.ErrUpstream, err)
	}
	return invoices, nil
}

// AppendInvoices appends rows to the invoices table.
func (g *Gateway) AppendInvoices(ctx context.Context, rows []ledger.Invoice) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin append invoices: %v", ledger.ErrUpstream, err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO invoices
		(id, number, supplier, issue_date, delivery_date, status, store,
		 confirmed_by, notes, raw_text, supplier_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC().Format(time.RFC3339)
	for _, inv := range rows {
		if _, err := tx.ExecContext(ctx, query,
			inv.ID, inv.Number, inv.Supplier, inv.IssueDate, inv.DeliveryDate,
			string(inv.Status), inv.Store, inv.ConfirmedBy, inv.Notes,
			inv.RawText, inv.SupplierCode, now,
		); err != nil {
			return fmt.Errorf("%w: insert invoice %s: %v", ledger.ErrUpstream, inv.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit append invoices: %v", ledger.ErrUpstream, err)
	}
	return nil
}

// UpdateInvoice applies the patch to the first row matching the id.
func (g *Gateway) UpdateInvoice(ctx context.Context, id string, patch ledger.InvoicePatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var sets []string
	var args []any
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.DeliveryDate != nil {
		sets = append(sets, "delivery_date = ?")
		args = append(args, *patch.DeliveryDate)
	}
	if patch.ConfirmedBy != nil {
		sets = append(sets, "confirmed_by = ?")
		args = append(args, *patch.ConfirmedBy)
	}
	if patch.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *patch.Notes)
	}
	if len(sets) == 0 {
		return nil
	}

	// First occurrence only, mirroring the duplicate-collapse on read.
	query := fmt.Sprintf(`
		UPDATE invoices SET %s
		WHERE rowid = (SELECT MIN(rowid) FROM invoices WHERE id = ?)
	`, strings.Join(sets, ", "))
	args = append(args, id)

	res, err := g.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: update invoice %s: %v", ledger.ErrUpstream, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ledger.ErrUpstream, err)
	}
	if affected == 0 {
		return ledger.ErrInvoiceNotFound
	}
	return nil
}

// =============================================================================
// MOVEMENTS
// =============================================================================

// Movements returns every movement row, newest timestamp first. Rows of
// one batch share a timestamp and stay in submission order.
func (g *Gateway) Movements(ctx context.Context) ([]ledger.Movement, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	query := `
		SELECT id, movement_date, timestamp, origin, origin_code, product,
		       quantity, unit, destination, destination_code, status,
		       raw_text, raw_text_filename, created_by
		FROM movements
		ORDER BY timestamp DESC, rowid ASC
	`
	rows, err := g.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query movements: %v", ledger.ErrUpstream, err)
	}
	defer rows.Close()

	var movements []ledger.Movement
	for rows.Next() {
		var mv ledger.Movement
		var ts, qty string
		if err := rows.Scan(&mv.ID, &mv.MovementDate, &ts, &mv.Origin,
			&mv.OriginCode, &mv.Product, &qty, &mv.Unit, &mv.Destination,
			&mv.DestinationCode, &mv.Status, &mv.RawText,
			&mv.RawTextFilename, &mv.CreatedBy); err != nil {
			return nil, fmt.Errorf("%w: scan movement: %v", ledger.ErrUpstream, err)
		}
		parsedTS, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed movement timestamp %q: %v", ledger.ErrUpstream, ts, err)
		}
		mv.Timestamp = parsedTS
		mv.Quantity, err = decimal.NewFromString(qty)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed movement quantity %q: %v", ledger.ErrUpstream, qty, err)
		}
		movements = append(movements, mv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate movements: %v", ledger.ErrUpstream, err)
	}
	return movements, nil
}

// AppendMovements appends rows to the movements table in one transaction.
func (g *Gateway) AppendMovements(ctx context.Context, rows []ledger.Movement) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin append movements: %v", ledger.ErrUpstream, err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO movements
		(id, movement_date, timestamp, origin, origin_code, product, quantity,
		 unit, destination, destination_code, status, raw_text,
		 raw_text_filename, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC().Format(time.RFC3339)
	for _, mv := range rows {
		if _, err := tx.ExecContext(ctx, query,
			mv.ID, mv.MovementDate, mv.Timestamp.UTC().Format(time.RFC3339Nano),
			mv.Origin, mv.OriginCode, mv.Product, mv.Quantity.String(),
			mv.Unit, mv.Destination, mv.DestinationCode, mv.Status,
			mv.RawText, mv.RawTextFilename, mv.CreatedBy, now,
		); err != nil {
			return fmt.Errorf("%w: insert movement %s: %v", ledger.ErrUpstream, mv.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit append movements: %v", ledger.ErrUpstream, err)
	}
	return nil
}
