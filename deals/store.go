/*
store.go - Persistence interface for deal records

PURPOSE:
  Defines the interface between the engine and whatever holds the source
  deal data. The store plays the role of the spreadsheet: it keeps deal
  inputs (start date, contract years, monthly revenue columns) and nothing
  the engine derives from them.

WHAT IS NOT STORED:
  Schedules, aggregate series and FirstYearMonthlyRevenue are computed on
  demand and returned to the caller. Implementations must not persist them.

IMPLEMENTATIONS:
  - deals/store/memory.go: In-memory for tests and the CLI
  - store/sqlite/sqlite.go: SQLite with versioned migrations

SEE ALSO:
  - batch.go: Consumes List() output
  - api/handlers.go: CRUD endpoints over a Store
*/
package deals

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/generic"
)

// =============================================================================
// STORE - Interface for deal persistence
// =============================================================================

type Store interface {
	// Save creates a deal. Returns ErrDuplicateDeal if the ID exists.
	Save(ctx context.Context, deal Deal) error

	// Get returns one deal or ErrDealNotFound.
	Get(ctx context.Context, id generic.DealID) (Deal, error)

	// List returns all deals ordered by start date, then ID.
	List(ctx context.Context) ([]Deal, error)

	// Delete removes a deal or returns ErrDealNotFound.
	Delete(ctx context.Context, id generic.DealID) error

	// Reset removes every deal.
	Reset(ctx context.Context) error
}

// Clone returns a deep copy, so stores never share slices or maps with callers.
func (d Deal) Clone() Deal {
	if d.ContractYears != nil {
		d.ContractYears = append([]ContractYear(nil), d.ContractYears...)
	}
	if d.MonthlyRevenue != nil {
		revenue := make(map[generic.Month]decimal.Decimal, len(d.MonthlyRevenue))
		for m, v := range d.MonthlyRevenue {
			revenue[m] = v
		}
		d.MonthlyRevenue = revenue
	}
	return d
}

// SortDeals orders deals by start date, then ID.
func SortDeals(deals []Deal) {
	sort.SliceStable(deals, func(i, j int) bool {
		a, b := deals[i], deals[j]
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		return a.ID < b.ID
	})
}
