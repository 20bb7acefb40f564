/*
schedule.go - Per-deal revenue schedule construction

PURPOSE:
  Turns a deal's start date and contract years into a step function of
  monthly revenue. This is the only place where contract durations become
  calendar dates.

ALGORITHM:
  first   = years[0].TotalValue / 12   (0 when there are no years)
  current = first
  cursor  = StartDate
  for each year:
      n = ceil(DurationMonths)          must be in [1, MaxContractMonths]
      emit (cursor, current)
      cursor = cursor + (n-1) months
      emit (cursor, current)
      cursor = cursor + 1 month
      current = next value (see DECAY MODES)

  Month steps clamp to the end of shorter months (Jan 31 + 1 = Feb 28),
  and each step starts from the already clamped cursor, so a deal starting
  Jan 31 runs Jan 31, Feb 28, Mar 28.

DECAY MODES:
  DecayProjected (default):
    Every year after the first is the previous year's value times
    (1 - DecayRate). Later years' TotalValue is ignored, so year k is
    first * (1 - DecayRate)^k.

  DecayStated:
    Every year is its own TotalValue / 12. DecayRate is not applied.

EXAMPLE:
  builder := deals.DefaultScheduleBuilder()
  sched, err := builder.Build(deal)
  // deal: 2018-01-01, years [(120000, 6), (100000, 12)]
  // sched.Breakpoints:
  //   2018-01-01 10000, 2018-06-01 10000, 2018-07-01 8000, 2019-06-01 8000
  deal = deal.WithSchedule(sched)

SEE ALSO:
  - aggregate.go: Cross-deal monthly totals
  - batch.go: Runs the builder over many deals
*/
package deals

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/generic"
)

// =============================================================================
// DECAY CONFIGURATION
// =============================================================================

// DefaultYearlyDecayRate is the 20% step-down applied per contract year.
var DefaultYearlyDecayRate = decimal.RequireFromString("0.2")

type DecayMode string

const (
	DecayProjected DecayMode = "projected"
	DecayStated    DecayMode = "stated"
)

// ParseDecayMode maps a configuration string to a DecayMode. Empty means projected.
func ParseDecayMode(s string) (DecayMode, error) {
	switch DecayMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", DecayProjected:
		return DecayProjected, nil
	case DecayStated:
		return DecayStated, nil
	default:
		return "", fmt.Errorf("%w: %q", generic.ErrInvalidDecayMode, s)
	}
}

// =============================================================================
// SCHEDULE BUILDER
// =============================================================================

// ScheduleBuilder converts contract years into breakpoints.
// The zero value builds projected schedules with no decay.
type ScheduleBuilder struct {
	DecayRate decimal.Decimal
	Mode      DecayMode
}

func NewScheduleBuilder(decayRate decimal.Decimal, mode DecayMode) (*ScheduleBuilder, error) {
	if decayRate.IsNegative() || decayRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: got %s", generic.ErrInvalidDecayRate, decayRate)
	}
	if mode == "" {
		mode = DecayProjected
	}
	if _, err := ParseDecayMode(string(mode)); err != nil {
		return nil, err
	}
	return &ScheduleBuilder{DecayRate: decayRate, Mode: mode}, nil
}

// DefaultScheduleBuilder uses a 20% yearly decay in projected mode.
func DefaultScheduleBuilder() *ScheduleBuilder {
	b, _ := NewScheduleBuilder(DefaultYearlyDecayRate, DecayProjected)
	return b
}

// FirstYearMonthlyRevenue is years[0].TotalValue / 12, or zero for no years.
func FirstYearMonthlyRevenue(years []ContractYear) decimal.Decimal {
	if len(years) == 0 {
		return decimal.Zero
	}
	return years[0].TotalValue.Div(generic.MonthsPerYear)
}

// Build produces the deal's schedule. A contract year whose duration rounds up
// to less than one month, or to more than MaxContractMonths, fails the whole deal with MalformedContractYearError;
// no partial schedule is returned.
func (b *ScheduleBuilder) Build(deal Deal) (Schedule, error) {
	first := FirstYearMonthlyRevenue(deal.ContractYears)
	sched := Schedule{DealID: deal.ID, FirstYearMonthlyRevenue: first}
	if len(deal.ContractYears) == 0 {
		sched.Breakpoints = []Breakpoint{}
		return sched, nil
	}

	stated := b.Mode == DecayStated
	retain := decimal.NewFromInt(1).Sub(b.DecayRate)

	breakpoints := make([]Breakpoint, 0, 2*len(deal.ContractYears))
	current := first
	cursor := deal.StartDate
	for i, year := range deal.ContractYears {
		months, ok := generic.WholeMonths(year.DurationMonths)
		if !ok {
			return Schedule{}, &generic.MalformedContractYearError{
				DealID:    deal.ID,
				YearIndex: i,
				Duration:  year.DurationMonths,
			}
		}

		if i > 0 && stated {
			current = year.TotalValue.Div(generic.MonthsPerYear)
		}

		end := cursor.AddMonths(months - 1)
		breakpoints = append(breakpoints,
			Breakpoint{At: cursor, Value: current},
			Breakpoint{At: end, Value: current},
		)
		cursor = end.AddMonths(1)

		if !stated {
			current = current.Mul(retain)
		}
	}

	sched.Breakpoints = breakpoints
	return sched, nil
}

// Validate checks every contract year without building the schedule.
func (b *ScheduleBuilder) Validate(deal Deal) error {
	for i, year := range deal.ContractYears {
		if _, ok := generic.WholeMonths(year.DurationMonths); !ok {
			return &generic.MalformedContractYearError{DealID: deal.ID, YearIndex: i, Duration: year.DurationMonths}
		}
	}
	return nil
}
