/*
Package sqlite provides the SQLite-backed implementation of the reporting
storage interface.

PURPOSE:
  Implements reporting.ConfigStore using the embedded SQLite database the
  desktop application ships with. The same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

KEY TABLES:
  report_configurations:  Parent definitions (unique report_name)
  report_config_fields:   Child columns; integer ids preserve insertion order
  report_config_filters:  Child predicates; integer ids preserve insertion order

  Business tables (clients, invoices, products, company_assets, candidates)
  back the entity registry so compiled reports have something to run against.

TRANSACTIONALITY:
  Add and Update span parent and children in a single transaction; any
  failure rolls back and leaves prior state intact. Update replaces a child
  set wholesale (delete-then-insert) whenever one is supplied.

CASCADE:
  Child tables declare ON DELETE CASCADE and the connection opens with
  foreign keys enforced, so deleting a configuration removes its children.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block and
  crash recovery is cheap.

USAGE:
  store, err := sqlite.New("./data/reports.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - reporting/store.go: Interface definition and ordering contract
  - reporting/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/warp/report-engine/reporting"
)

// Store implements reporting.ConfigStore using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for the execution runner, which issues
// read-only queries compiled elsewhere.
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate creates the schema.
func (s *Store) migrate() error {
	schema := `
	-- Report definitions
	CREATE TABLE IF NOT EXISTS report_configurations (
		id TEXT PRIMARY KEY,
		report_name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		target_entity TEXT NOT NULL,
		output_format TEXT NOT NULL,
		created_by TEXT NOT NULL DEFAULT '',
		is_system INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Child columns. Integer ids double as the insertion-order tiebreak the
	-- load ordering contract depends on.
	CREATE TABLE IF NOT EXISTS report_config_fields (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		config_id TEXT NOT NULL REFERENCES report_configurations(id) ON DELETE CASCADE,
		field_name TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		sort_order INTEGER NOT NULL DEFAULT 0,
		sort_direction TEXT NOT NULL DEFAULT 'ASC',
		group_by_priority INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_fields_config
		ON report_config_fields(config_id);

	-- Child predicates
	CREATE TABLE IF NOT EXISTS report_config_filters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		config_id TEXT NOT NULL REFERENCES report_configurations(id) ON DELETE CASCADE,
		field_name TEXT NOT NULL,
		operator TEXT NOT NULL,
		filter_value_1 TEXT NOT NULL DEFAULT '',
		filter_value_2 TEXT NOT NULL DEFAULT '',
		logical_group TEXT NOT NULL DEFAULT 'AND'
	);

	CREATE INDEX IF NOT EXISTS idx_filters_config
		ON report_config_filters(config_id);

	-- Business tables backing the entity registry
	CREATE TABLE IF NOT EXISTS clients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_name TEXT NOT NULL,
		contact_email TEXT,
		phone TEXT,
		city TEXT,
		status TEXT NOT NULL DEFAULT 'Active',
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS invoices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		invoice_number TEXT NOT NULL UNIQUE,
		client_name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Draft',
		total_amount TEXT NOT NULL DEFAULT '0',
		issued_at TEXT,
		due_at TEXT,
		paid INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_name TEXT NOT NULL,
		sku TEXT NOT NULL UNIQUE,
		unit_price TEXT NOT NULL DEFAULT '0',
		stock_qty INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS company_assets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		asset_name TEXT NOT NULL,
		asset_tag TEXT,
		category TEXT,
		purchase_price TEXT NOT NULL DEFAULT '0',
		purchased_at TEXT,
		status TEXT NOT NULL DEFAULT 'In Use'
	);

	CREATE TABLE IF NOT EXISTS candidates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		candidate_name TEXT NOT NULL,
		email TEXT,
		position TEXT,
		stage TEXT NOT NULL DEFAULT 'Applied',
		applied_at TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CONFIG STORE
// =============================================================================

// Add persists a configuration and its children in one transaction.
func (s *Store) Add(ctx context.Context, cfg reporting.ReportConfiguration) (reporting.ConfigID, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	id := reporting.ConfigID(uuid.NewString())
	now := time.Now().UTC().Format(time.RFC3339)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO report_configurations
			(id, report_name, description, target_entity, output_format, created_by, is_system, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(id), cfg.Name, cfg.Description, cfg.TargetEntity, string(cfg.OutputFormat),
		cfg.CreatedBy, boolToInt(cfg.IsSystem), now, now)
	if err != nil {
		return "", translateErr(err)
	}

	if err := insertFields(ctx, tx, id, cfg.Fields); err != nil {
		return "", translateErr(err)
	}
	if err := insertFilters(ctx, tx, id, cfg.Filters); err != nil {
		return "", translateErr(err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// Get loads a configuration with children in the contractual orderings.
// Returns (nil, nil) on a miss.
func (s *Store) Get(ctx context.Context, id reporting.ConfigID) (*reporting.ReportConfiguration, error) {
	cfg, err := scanConfig(s.db.QueryRowContext(ctx, `
		SELECT id, report_name, description, target_entity, output_format, created_by, is_system, created_at, updated_at
		FROM report_configurations WHERE id = ?`, string(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := s.loadChildren(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// List returns summaries visible to the principal, ordered by name.
func (s *Store) List(ctx context.Context, p reporting.Principal, includeSystem bool) ([]reporting.ConfigSummary, error) {
	query := `
		SELECT id, report_name, description, target_entity, output_format, created_by, is_system, created_at, updated_at
		FROM report_configurations
		WHERE (created_by = ? AND is_system = 0)`
	if includeSystem {
		query += ` OR is_system = 1`
	}
	query += ` ORDER BY report_name ASC`

	rows, err := s.db.QueryContext(ctx, query, p.UserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []reporting.ConfigSummary{}
	for rows.Next() {
		var (
			sum      reporting.ConfigSummary
			isSystem int
			created  string
			updated  string
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Description, &sum.TargetEntity,
			&sum.OutputFormat, &sum.CreatedBy, &isSystem, &created, &updated); err != nil {
			return nil, err
		}
		sum.IsSystem = isSystem != 0
		sum.CreatedAt = parseTime(created)
		sum.UpdatedAt = parseTime(updated)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Update applies the patch transactionally. Supplying Fields or Filters
// replaces that child set wholesale, even when empty.
func (s *Store) Update(ctx context.Context, id reporting.ConfigID, patch reporting.ConfigPatch) (*reporting.ReportConfiguration, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	cfg, err := scanConfig(tx.QueryRowContext(ctx, `
		SELECT id, report_name, description, target_entity, output_format, created_by, is_system, created_at, updated_at
		FROM report_configurations WHERE id = ?`, string(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if patch.Name != nil {
		cfg.Name = *patch.Name
	}
	if patch.Description != nil {
		cfg.Description = *patch.Description
	}
	if patch.TargetEntity != nil {
		cfg.TargetEntity = *patch.TargetEntity
	}
	if patch.OutputFormat != nil {
		cfg.OutputFormat = *patch.OutputFormat
	}
	cfg.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE report_configurations
		SET report_name = ?, description = ?, target_entity = ?, output_format = ?, updated_at = ?
		WHERE id = ?`,
		cfg.Name, cfg.Description, cfg.TargetEntity, string(cfg.OutputFormat),
		cfg.UpdatedAt.Format(time.RFC3339), string(id))
	if err != nil {
		return nil, translateErr(err)
	}

	if patch.Fields != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM report_config_fields WHERE config_id = ?`, string(id)); err != nil {
			return nil, err
		}
		if err := insertFields(ctx, tx, id, *patch.Fields); err != nil {
			return nil, translateErr(err)
		}
	}
	if patch.Filters != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM report_config_filters WHERE config_id = ?`, string(id)); err != nil {
			return nil, err
		}
		if err := insertFilters(ctx, tx, id, *patch.Filters); err != nil {
			return nil, translateErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// Delete removes the configuration; children cascade. Returns false for an
// absent id.
func (s *Store) Delete(ctx context.Context, id reporting.ConfigID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM report_configurations WHERE id = ?`, string(id))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// =============================================================================
// CHILD LOADING / INSERTION
// =============================================================================

func (s *Store) loadChildren(ctx context.Context, cfg *reporting.ReportConfiguration) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, field_name, display_name, sort_order, sort_direction, group_by_priority
		FROM report_config_fields
		WHERE config_id = ?
		ORDER BY sort_order ASC, id ASC`, string(cfg.ID))
	if err != nil {
		return err
	}
	defer rows.Close()

	cfg.Fields = []reporting.ReportField{}
	for rows.Next() {
		var f reporting.ReportField
		if err := rows.Scan(&f.ID, &f.FieldName, &f.DisplayName, &f.SortOrder, &f.SortDirection, &f.GroupByPriority); err != nil {
			return err
		}
		cfg.Fields = append(cfg.Fields, f)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	frows, err := s.db.QueryContext(ctx, `
		SELECT id, field_name, operator, filter_value_1, filter_value_2, logical_group
		FROM report_config_filters
		WHERE config_id = ?
		ORDER BY id ASC`, string(cfg.ID))
	if err != nil {
		return err
	}
	defer frows.Close()

	cfg.Filters = []reporting.ReportFilter{}
	for frows.Next() {
		var f reporting.ReportFilter
		if err := frows.Scan(&f.ID, &f.FieldName, &f.Operator, &f.Value1, &f.Value2, &f.LogicalGroup); err != nil {
			return err
		}
		cfg.Filters = append(cfg.Filters, f)
	}
	return frows.Err()
}

func insertFields(ctx context.Context, tx *sql.Tx, id reporting.ConfigID, fields []reporting.ReportField) error {
	for _, f := range fields {
		dir := f.SortDirection
		if dir == "" {
			dir = reporting.SortAsc
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO report_config_fields
				(config_id, field_name, display_name, sort_order, sort_direction, group_by_priority)
			VALUES (?, ?, ?, ?, ?, ?)`,
			string(id), f.FieldName, f.DisplayName, f.SortOrder, string(dir), f.GroupByPriority)
		if err != nil {
			return err
		}
	}
	return nil
}

func insertFilters(ctx context.Context, tx *sql.Tx, id reporting.ConfigID, filters []reporting.ReportFilter) error {
	for _, f := range filters {
		group := f.LogicalGroup
		if group == "" {
			group = reporting.GroupAnd
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO report_config_filters
				(config_id, field_name, operator, filter_value_1, filter_value_2, logical_group)
			VALUES (?, ?, ?, ?, ?, ?)`,
			string(id), f.FieldName, string(f.Operator), f.Value1, f.Value2, string(group))
		if err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// DEMO DATA
// =============================================================================

// SeedDemoData fills the business tables with a small data set so compiled
// reports return rows on a fresh install. Safe to call repeatedly.
func (s *Store) SeedDemoData(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	seed := `
	INSERT INTO clients (client_name, contact_email, phone, city, status) VALUES
		('Acme Industrial', 'office@acme-industrial.example', '+1-555-0101', 'Chicago', 'Active'),
		('Brightwater Media', 'hello@brightwater.example', '+1-555-0102', 'Austin', 'Active'),
		('Cobalt Freight', 'ops@cobaltfreight.example', '+1-555-0103', 'Denver', 'Inactive');

	INSERT INTO invoices (invoice_number, client_name, status, total_amount, issued_at, due_at, paid) VALUES
		('INV-2025-001', 'Acme Industrial', 'Sent', '1250.00', '2025-06-01', '2025-07-01', 0),
		('INV-2025-002', 'Brightwater Media', 'Paid', '890.50', '2025-06-10', '2025-07-10', 1),
		('INV-2025-003', 'Acme Industrial', 'Overdue', '2310.75', '2025-05-15', '2025-06-15', 0);

	INSERT INTO products (product_name, sku, unit_price, stock_qty, active) VALUES
		('Standing Desk', 'SKU-1001', '499.00', 12, 1),
		('Task Chair', 'SKU-1002', '219.00', 30, 1),
		('Monitor Arm', 'SKU-1003', '89.00', 0, 0);

	INSERT INTO company_assets (asset_name, asset_tag, category, purchase_price, purchased_at, status) VALUES
		('Engraving Machine', 'AST-001', 'Workshop', '15400.00', '2023-02-10', 'In Use'),
		('Delivery Van', 'AST-002', 'Vehicles', '28900.00', '2022-09-01', 'In Use'),
		('Laser Cutter', 'AST-003', 'Workshop', '9900.00', '2024-01-20', 'In Repair');

	INSERT INTO candidates (candidate_name, email, position, stage, applied_at) VALUES
		('Dana Whitfield', 'dana.w@example.com', 'Account Manager', 'Interview', '2025-05-02'),
		('Jonas Pelt', 'jonas.p@example.com', 'Technician', 'Applied', '2025-05-20');
	`
	_, err := s.db.ExecContext(ctx, seed)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (*reporting.ReportConfiguration, error) {
	var (
		cfg      reporting.ReportConfiguration
		isSystem int
		created  string
		updated  string
	)
	err := row.Scan(&cfg.ID, &cfg.Name, &cfg.Description, &cfg.TargetEntity,
		&cfg.OutputFormat, &cfg.CreatedBy, &isSystem, &created, &updated)
	if err != nil {
		return nil, err
	}
	cfg.IsSystem = isSystem != 0
	cfg.CreatedAt = parseTime(created)
	cfg.UpdatedAt = parseTime(updated)
	return &cfg, nil
}

// translateErr maps driver constraint errors to domain errors.
func translateErr(err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return reporting.ErrNameConflict
	}
	return err
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
