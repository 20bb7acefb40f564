/*
Package sqlite provides a SQLite-backed implementation of deals.Store.

PURPOSE:
  Holds the source deal data the engine reads: start dates, contract years
  and the per-month revenue columns. It replaces the spreadsheet the deal
  model was originally fed from.

KEY TABLES:
  deals:            One row per deal (customer, quarter, start date, TCV)
  contract_years:   Ordered (total_value, duration_months) per deal
  monthly_revenue:  (deal, month) -> revenue, month stored as YYYY-MM

NOT STORED:
  Schedules, aggregate series and first-year monthly revenue. Those are
  computed on every request from the stored inputs.

PRECISION:
  Money and durations are stored as decimal strings and parsed back with
  shopspring/decimal, so values round-trip exactly.

MIGRATIONS:
  Schema is versioned under migrations/ and applied with golang-migrate on
  New(). The migrations are embedded in the binary.

WAL MODE:
  File databases are opened with WAL and foreign keys on. ":memory:"
  databases are pinned to a single connection so every query sees the
  same database.

USAGE:
  store, err := sqlite.New("./data/deals.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  batch := deals.Process(ctx, must(store.List(ctx)), builder, deals.Options{})

SEE ALSO:
  - deals/store.go: Interface definition
  - deals/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/revenue-engine/deals"
	"github.com/warp/revenue-engine/generic"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements deals.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ deals.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path and migrates it.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an already migrated database handle.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrateUp applies embedded migrations. The migrate instance is not closed:
// its driver would close db along with it.
func migrateUp(db *sql.DB) error {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// =============================================================================
// DEALS (deals.Store interface)
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Save inserts a deal with its contract years and monthly revenue atomically.
func (s *Store) Save(ctx context.Context, deal deals.Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := insertDeal(ctx, sqlTx, deal); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func insertDeal(ctx context.Context, db execer, deal deals.Deal) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO deals (id, customer, quarter, start_date, tcv, duration_max, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		string(deal.ID),
		deal.Customer,
		deal.Quarter,
		deal.StartDate.Time.Format(generic.DateLayout),
		deal.TCV.String(),
		deal.DurationMax.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateDeal
		}
		return fmt.Errorf("failed to insert deal: %w", err)
	}

	for i, y := range deal.ContractYears {
		_, err := db.ExecContext(ctx, `
			INSERT INTO contract_years (deal_id, position, total_value, duration_months)
			VALUES (?, ?, ?, ?)
		`, string(deal.ID), i, y.TotalValue.String(), y.DurationMonths.String())
		if err != nil {
			return fmt.Errorf("failed to insert contract year %d: %w", i, err)
		}
	}

	for m, v := range deal.MonthlyRevenue {
		_, err := db.ExecContext(ctx, `
			INSERT INTO monthly_revenue (deal_id, month, value) VALUES (?, ?, ?)
		`, string(deal.ID), m.String(), v.String())
		if err != nil {
			return fmt.Errorf("failed to insert monthly revenue %s: %w", m, err)
		}
	}
	return nil
}

// Get returns a single deal.
func (s *Store) Get(ctx context.Context, id generic.DealID) (deals.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found, err := s.queryDeals(ctx, `
		SELECT id, customer, quarter, start_date, tcv, duration_max
		FROM deals WHERE id = ?
	`, string(id))
	if err != nil {
		return deals.Deal{}, err
	}
	if len(found) == 0 {
		return deals.Deal{}, generic.ErrDealNotFound
	}
	return found[0], nil
}

// List returns all deals ordered by start date, then ID.
func (s *Store) List(ctx context.Context) ([]deals.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryDeals(ctx, `
		SELECT id, customer, quarter, start_date, tcv, duration_max
		FROM deals ORDER BY start_date ASC, id ASC
	`)
}

// Delete removes a deal; contract years and revenue rows cascade.
func (s *Store) Delete(ctx context.Context, id generic.DealID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM deals WHERE id = ?", string(id))
	if err != nil {
		return fmt.Errorf("failed to delete deal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete deal: %w", err)
	}
	if n == 0 {
		return generic.ErrDealNotFound
	}
	return nil
}

// Reset clears all data (for scenario loading).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"monthly_revenue", "contract_years", "deals"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// ReplaceAll swaps the whole deal book in one transaction.
func (s *Store) ReplaceAll(ctx context.Context, book []deals.Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, table := range []string{"monthly_revenue", "contract_years", "deals"} {
		if _, err := sqlTx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	for _, d := range book {
		if err := insertDeal(ctx, sqlTx, d); err != nil {
			return fmt.Errorf("deal %s: %w", d.ID, err)
		}
	}
	return sqlTx.Commit()
}

// =============================================================================
// QUERY HELPERS
// =============================================================================

func (s *Store) queryDeals(ctx context.Context, query string, args ...any) ([]deals.Deal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}

	var (
		result []deals.Deal
		index  = make(map[generic.DealID]int)
	)
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[d.ID] = len(result)
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read deals: %w", err)
	}
	rows.Close()

	for i := range result {
		if err := s.loadDetails(ctx, &result[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Store) loadDetails(ctx context.Context, d *deals.Deal) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT total_value, duration_months FROM contract_years
		WHERE deal_id = ? ORDER BY position ASC
	`, string(d.ID))
	if err != nil {
		return fmt.Errorf("failed to query contract years: %w", err)
	}
	for rows.Next() {
		var value, duration string
		if err := rows.Scan(&value, &duration); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan contract year: %w", err)
		}
		y, err := parseContractYear(value, duration)
		if err != nil {
			rows.Close()
			return fmt.Errorf("deal %s: %w", d.ID, err)
		}
		d.ContractYears = append(d.ContractYears, y)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to read contract years: %w", err)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT month, value FROM monthly_revenue WHERE deal_id = ? ORDER BY month ASC
	`, string(d.ID))
	if err != nil {
		return fmt.Errorf("failed to query monthly revenue: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var month, value string
		if err := rows.Scan(&month, &value); err != nil {
			return fmt.Errorf("failed to scan monthly revenue: %w", err)
		}
		m, err := generic.ParseMonth(month)
		if err != nil {
			return fmt.Errorf("deal %s: %w", d.ID, err)
		}
		if d.MonthlyRevenue == nil {
			d.MonthlyRevenue = make(map[generic.Month]decimal.Decimal)
		}
		d.MonthlyRevenue[m], err = parseDecimal("monthly revenue", value)
		if err != nil {
			return fmt.Errorf("deal %s: %w", d.ID, err)
		}
	}
	return rows.Err()
}

func scanDeal(rows *sql.Rows) (deals.Deal, error) {
	var (
		d           deals.Deal
		id          string
		startDate   string
		tcv         string
		durationMax string
	)
	if err := rows.Scan(&id, &d.Customer, &d.Quarter, &startDate, &tcv, &durationMax); err != nil {
		return d, fmt.Errorf("failed to scan deal: %w", err)
	}

	start, err := generic.ParseDate(startDate)
	if err != nil {
		return d, fmt.Errorf("deal %s: %w", id, err)
	}
	d.ID = generic.DealID(id)
	d.StartDate = start
	if d.TCV, err = parseDecimal("tcv", tcv); err != nil {
		return d, fmt.Errorf("deal %s: %w", id, err)
	}
	if d.DurationMax, err = parseDecimal("duration_max", durationMax); err != nil {
		return d, fmt.Errorf("deal %s: %w", id, err)
	}
	return d, nil
}

func parseContractYear(value, duration string) (deals.ContractYear, error) {
	v, err := parseDecimal("total_value", value)
	if err != nil {
		return deals.ContractYear{}, err
	}
	dm, err := parseDecimal("duration_months", duration)
	if err != nil {
		return deals.ContractYear{}, err
	}
	return deals.ContractYear{TotalValue: v, DurationMonths: dm}, nil
}

func parseDecimal(column, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", column, s, err)
	}
	return d, nil
}

// Helper functions

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
