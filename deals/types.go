// Package deals implements revenue schedules for sales contracts.
// It builds per-deal step functions and aggregates monthly revenue across deals,
// using the calendar and decimal primitives from the generic package.
package deals

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/generic"
)

// =============================================================================
// DEAL - One contract record
// =============================================================================

// ContractYear is one year (or partial year) of a deal's value.
type ContractYear struct {
	TotalValue     decimal.Decimal
	DurationMonths decimal.Decimal
}

func NewContractYear(totalValue, durationMonths float64) ContractYear {
	return ContractYear{
		TotalValue:     decimal.NewFromFloat(totalValue),
		DurationMonths: decimal.NewFromFloat(durationMonths),
	}
}

// Deal is a contract with a start date and a multi-year revenue plan.
//
// MonthlyRevenue is supplied by the data source and is independent of
// ContractYears; only the aggregator reads it.
type Deal struct {
	ID          generic.DealID
	Customer    string
	Quarter     string // booking quarter, e.g. "2018Q1"
	TCV         decimal.Decimal
	DurationMax decimal.Decimal

	StartDate     generic.TimePoint
	ContractYears []ContractYear

	// Derived by the schedule builder. Set through WithSchedule.
	FirstYearMonthlyRevenue decimal.Decimal

	MonthlyRevenue map[generic.Month]decimal.Decimal
}

// WithSchedule returns a copy of the deal carrying the schedule's first-year
// monthly revenue. The receiver is left untouched.
func (d Deal) WithSchedule(s Schedule) Deal {
	d.FirstYearMonthlyRevenue = s.FirstYearMonthlyRevenue
	return d
}

// BookingQuarter returns Quarter, falling back to the start date's quarter.
func (d Deal) BookingQuarter() string {
	if d.Quarter != "" {
		return d.Quarter
	}
	return QuarterOf(d.StartDate)
}

// Months returns the deal's monthly revenue keys in ascending order.
func (d Deal) Months() []generic.Month {
	months := make([]generic.Month, 0, len(d.MonthlyRevenue))
	for m := range d.MonthlyRevenue {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months
}

// =============================================================================
// SCHEDULE - Step function produced per deal
// =============================================================================

// Breakpoint marks where the step function's value becomes (or remains) constant.
type Breakpoint struct {
	At    generic.TimePoint
	Value decimal.Decimal
}

// Schedule is a right-continuous step function of monthly revenue.
// Breakpoints come in pairs: the start and the last month of each contract year.
type Schedule struct {
	DealID                  generic.DealID
	FirstYearMonthlyRevenue decimal.Decimal
	Breakpoints             []Breakpoint
}

// IsEmpty reports whether the deal had no contract years.
func (s Schedule) IsEmpty() bool { return len(s.Breakpoints) == 0 }

// Segments returns the number of contract years the schedule covers.
func (s Schedule) Segments() int { return len(s.Breakpoints) / 2 }

// ValueAt evaluates the step function. It is zero before the first breakpoint
// and after the month of the last breakpoint.
func (s Schedule) ValueAt(at generic.TimePoint) decimal.Decimal {
	if s.IsEmpty() || at.Before(s.Breakpoints[0].At) {
		return decimal.Zero
	}
	last := s.Breakpoints[len(s.Breakpoints)-1]
	if generic.MonthOf(at).After(generic.MonthOf(last.At)) {
		return decimal.Zero
	}
	value := decimal.Zero
	for _, bp := range s.Breakpoints {
		if bp.At.After(at) {
			break
		}
		value = bp.Value
	}
	return value
}
