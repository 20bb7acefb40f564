/*
Package generic provides the calendar and numeric primitives of the revenue engine.

PURPOSE:
  This package contains domain-agnostic types shared by the schedule builder,
  the aggregator, the stores and the API. Nothing here knows what a deal is;
  it only knows dates, months, periods and exact decimal arithmetic.

KEY CONCEPTS IN THIS FILE (types.go):
  - DealID: Type-safe identifier for a deal record
  - Decimal helpers: exact parsing and whole-month rounding

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Type Safety: Strong typing for IDs and months
  3. Clamped calendar arithmetic: month offsets never spill into the next month

USAGE:
  start := generic.NewTimePoint(2018, time.January, 1)
  end := start.AddMonths(11)              // 2018-12-01
  months, _ := generic.WholeMonths(generic.MustParseDecimal("11.5")) // 12

SEE ALSO:
  - time.go: TimePoint and Month
  - period.go: Month windows for series queries
  - errors.go: Sentinel and structured errors
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type DealID string

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

// MonthsPerYear is the divisor that turns a contract year's value into monthly revenue.
var MonthsPerYear = decimal.NewFromInt(12)

func NewDecimal(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value)
}

// MustParseDecimal panics on malformed input. Use for constants and fixtures.
func MustParseDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// MaxContractMonths bounds a single contract year. Longer durations are
// rejected rather than pushed through calendar arithmetic.
const MaxContractMonths = 1200

var maxContractMonths = decimal.NewFromInt(MaxContractMonths)

// WholeMonths rounds a possibly fractional duration up to whole months.
// ok is false when the result would not advance a calendar cursor or
// exceeds MaxContractMonths.
func WholeMonths(duration decimal.Decimal) (months int, ok bool) {
	ceil := duration.Ceil()
	if ceil.GreaterThan(maxContractMonths) {
		return 0, false
	}
	months = int(ceil.IntPart())
	return months, months >= 1
}

// Sum adds values exactly.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
