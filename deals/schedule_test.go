package deals_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/revenue-engine/deals"
	"github.com/warp/revenue-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func jan1(year int) generic.TimePoint { return generic.NewTimePoint(year, 1, 1) }

func dealWith(start generic.TimePoint, years ...deals.ContractYear) deals.Deal {
	return deals.Deal{ID: "deal-1", StartDate: start, ContractYears: years}
}

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

type bp struct {
	date  string
	value string
}

func assertBreakpoints(t *testing.T, want []bp, got []deals.Breakpoint) {
	t.Helper()
	require.Len(t, got, len(want))
	for i, w := range want {
		assert.Equal(t, w.date, got[i].At.String(), "breakpoint %d date", i)
		assert.True(t, got[i].Value.Equal(decimal.RequireFromString(w.value)),
			"breakpoint %d value: want %s, got %s", i, w.value, got[i].Value)
	}
}

// =============================================================================
// REFERENCE SCHEDULES
// =============================================================================

func TestBuild_SingleYear(t *testing.T) {
	// GIVEN: One 12-month year worth 120000 starting 2018-01-01
	deal := dealWith(jan1(2018), deals.NewContractYear(120000, 12))

	// WHEN: Built with the default 20% decay
	sched, err := deals.DefaultScheduleBuilder().Build(deal)

	// THEN: A flat 10000 from January to December
	require.NoError(t, err)
	assert.True(t, sched.FirstYearMonthlyRevenue.Equal(dec(10000)))
	assertBreakpoints(t, []bp{
		{"2018-01-01", "10000"},
		{"2018-12-01", "10000"},
	}, sched.Breakpoints)
}

func TestBuild_TwoYearsIgnoresLaterTotalValue(t *testing.T) {
	deal := dealWith(jan1(2018),
		deals.NewContractYear(120000, 6),
		deals.NewContractYear(100000, 12),
	)

	sched, err := deals.DefaultScheduleBuilder().Build(deal)

	require.NoError(t, err)
	assertBreakpoints(t, []bp{
		{"2018-01-01", "10000"},
		{"2018-06-01", "10000"},
		{"2018-07-01", "8000"},
		{"2019-06-01", "8000"},
	}, sched.Breakpoints)
}

func TestBuild_NoContractYears(t *testing.T) {
	sched, err := deals.DefaultScheduleBuilder().Build(dealWith(jan1(2018)))

	require.NoError(t, err)
	assert.True(t, sched.FirstYearMonthlyRevenue.IsZero())
	assert.NotNil(t, sched.Breakpoints)
	assert.Empty(t, sched.Breakpoints)
	assert.True(t, sched.IsEmpty())
}

func TestBuild_GeometricDecay(t *testing.T) {
	deal := dealWith(jan1(2018),
		deals.NewContractYear(120000, 12),
		deals.NewContractYear(1, 12),
		deals.NewContractYear(999999, 12),
	)

	sched, err := deals.DefaultScheduleBuilder().Build(deal)

	require.NoError(t, err)
	assert.Equal(t, 3, sched.Segments())
	assertBreakpoints(t, []bp{
		{"2018-01-01", "10000"},
		{"2018-12-01", "10000"},
		{"2019-01-01", "8000"},
		{"2019-12-01", "8000"},
		{"2020-01-01", "6400"},
		{"2020-12-01", "6400"},
	}, sched.Breakpoints)
}

func TestBuild_Properties(t *testing.T) {
	deal := dealWith(generic.NewTimePoint(2017, 5, 15),
		deals.NewContractYear(90000, 3),
		deals.NewContractYear(50000, 7.2),
		deals.NewContractYear(70000, 12),
		deals.NewContractYear(10000, 1),
	)

	sched, err := deals.DefaultScheduleBuilder().Build(deal)
	require.NoError(t, err)

	// 2 breakpoints per year
	require.Len(t, sched.Breakpoints, 2*len(deal.ContractYears))
	// First value is the first-year monthly revenue
	assert.True(t, sched.Breakpoints[0].Value.Equal(sched.FirstYearMonthlyRevenue))

	for i := 1; i < len(sched.Breakpoints); i++ {
		prev, cur := sched.Breakpoints[i-1], sched.Breakpoints[i]
		assert.True(t, prev.At.BeforeOrEqual(cur.At), "dates non-decreasing at %d", i)
		assert.True(t, cur.Value.LessThanOrEqual(prev.Value), "values non-increasing at %d", i)
	}
	for i := 0; i < len(sched.Breakpoints); i += 2 {
		assert.True(t, sched.Breakpoints[i].Value.Equal(sched.Breakpoints[i+1].Value), "segment %d is flat", i/2)
	}
	// Segments are contiguous: next start is one month after previous end
	for i := 2; i < len(sched.Breakpoints); i += 2 {
		prevEnd := generic.MonthOf(sched.Breakpoints[i-1].At)
		assert.Equal(t, prevEnd.Add(1), generic.MonthOf(sched.Breakpoints[i].At))
	}
}

// =============================================================================
// DURATIONS AND CALENDAR EDGES
// =============================================================================

func TestBuild_FractionalDurationRoundsUp(t *testing.T) {
	deal := dealWith(jan1(2018),
		deals.NewContractYear(120000, 11.5),
		deals.NewContractYear(0, 0.25),
	)

	sched, err := deals.DefaultScheduleBuilder().Build(deal)

	require.NoError(t, err)
	assertBreakpoints(t, []bp{
		{"2018-01-01", "10000"},
		{"2018-12-01", "10000"},
		{"2019-01-01", "8000"},
		{"2019-01-01", "8000"},
	}, sched.Breakpoints)
}

func TestBuild_MonthEndStartClamps(t *testing.T) {
	deal := dealWith(generic.NewTimePoint(2018, 1, 31),
		deals.NewContractYear(12000, 1),
		deals.NewContractYear(12000, 1),
		deals.NewContractYear(12000, 2),
	)

	sched, err := deals.DefaultScheduleBuilder().Build(deal)

	require.NoError(t, err)
	assertBreakpoints(t, []bp{
		{"2018-01-31", "1000"},
		{"2018-01-31", "1000"},
		{"2018-02-28", "800"},
		{"2018-02-28", "800"},
		{"2018-03-28", "640"},
		{"2018-04-28", "640"},
	}, sched.Breakpoints)
}

func TestBuild_ClampCarriesForward(t *testing.T) {
	// GIVEN: A deal starting on the 30th whose second segment crosses February
	deal := dealWith(generic.NewTimePoint(2018, 1, 30),
		deals.NewContractYear(12000, 2),
		deals.NewContractYear(12000, 3),
	)

	// WHEN: Built
	sched, err := deals.DefaultScheduleBuilder().Build(deal)

	// THEN: Once clamped to Feb 28, later dates keep the 28th
	require.NoError(t, err)
	assertBreakpoints(t, []bp{
		{"2018-01-30", "1000"},
		{"2018-02-28", "1000"},
		{"2018-03-28", "800"},
		{"2018-05-28", "800"},
	}, sched.Breakpoints)
}

func TestBuild_LeapYear(t *testing.T) {
	deal := dealWith(generic.NewTimePoint(2019, 12, 31), deals.NewContractYear(12000, 3))

	sched, err := deals.DefaultScheduleBuilder().Build(deal)

	require.NoError(t, err)
	assert.Equal(t, "2020-02-29", sched.Breakpoints[1].At.String())
}

func TestBuild_NegativeValues(t *testing.T) {
	deal := dealWith(jan1(2018),
		deals.NewContractYear(-12000, 12),
		deals.NewContractYear(-12000, 12),
	)

	sched, err := deals.DefaultScheduleBuilder().Build(deal)

	require.NoError(t, err)
	assert.True(t, sched.FirstYearMonthlyRevenue.Equal(dec(-1000)))
	assert.True(t, sched.Breakpoints[2].Value.Equal(dec(-800)))
}

func TestBuild_MalformedDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
	}{
		{"zero", 0},
		{"negative", -1},
		{"negative fraction", -0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deal := dealWith(jan1(2018),
				deals.NewContractYear(120000, 12),
				deals.NewContractYear(1000, tt.duration),
			)

			sched, err := deals.DefaultScheduleBuilder().Build(deal)

			require.Error(t, err)
			assert.True(t, errors.Is(err, generic.ErrMalformedContractYear))
			var mcy *generic.MalformedContractYearError
			require.ErrorAs(t, err, &mcy)
			assert.Equal(t, generic.DealID("deal-1"), mcy.DealID)
			assert.Equal(t, 1, mcy.YearIndex)
			assert.Empty(t, sched.Breakpoints, "no partial schedule")
		})
	}
}

func TestBuild_DurationTooLong(t *testing.T) {
	tests := []struct {
		name     string
		duration string
	}{
		{"just over the limit", "1200.5"},
		{"beyond int64", "1e20"},
		{"two to the 64th", "18446744073709551616"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deal := dealWith(jan1(2018),
				deals.ContractYear{TotalValue: dec(12), DurationMonths: decimal.RequireFromString(tt.duration)},
				deals.NewContractYear(12, 1),
			)

			sched, err := deals.DefaultScheduleBuilder().Build(deal)

			require.ErrorIs(t, err, generic.ErrMalformedContractYear)
			var mcy *generic.MalformedContractYearError
			require.ErrorAs(t, err, &mcy)
			assert.Equal(t, 0, mcy.YearIndex)
			assert.Contains(t, err.Error(), "exceeds 1200 months")
			assert.Empty(t, sched.Breakpoints)
		})
	}
}

func TestBuild_LongestDurationAccepted(t *testing.T) {
	deal := dealWith(jan1(2018), deals.NewContractYear(12, generic.MaxContractMonths))

	sched, err := deals.DefaultScheduleBuilder().Build(deal)

	require.NoError(t, err)
	assert.Equal(t, "2117-12-01", sched.Breakpoints[1].At.String())
}

// =============================================================================
// BUILDER CONFIGURATION
// =============================================================================

func TestBuild_StatedMode(t *testing.T) {
	b, err := deals.NewScheduleBuilder(dec(0.2), deals.DecayStated)
	require.NoError(t, err)

	sched, err := b.Build(dealWith(jan1(2018),
		deals.NewContractYear(120000, 6),
		deals.NewContractYear(100000, 12),
	))

	require.NoError(t, err)
	assert.True(t, sched.Breakpoints[2].Value.Equal(decimal.NewFromInt(100000).Div(generic.MonthsPerYear)))
}

func TestBuild_ZeroDecay(t *testing.T) {
	b, err := deals.NewScheduleBuilder(decimal.Zero, deals.DecayProjected)
	require.NoError(t, err)

	sched, err := b.Build(dealWith(jan1(2018),
		deals.NewContractYear(120000, 12),
		deals.NewContractYear(100000, 12),
	))

	require.NoError(t, err)
	assert.True(t, sched.Breakpoints[3].Value.Equal(dec(10000)))
}

func TestBuild_ZeroValueBuilder(t *testing.T) {
	var b deals.ScheduleBuilder

	sched, err := b.Build(dealWith(jan1(2018),
		deals.NewContractYear(120000, 12),
		deals.NewContractYear(0, 12),
	))

	require.NoError(t, err)
	assert.True(t, sched.Breakpoints[2].Value.Equal(dec(10000)), "no decay, projected")
}

func TestNewScheduleBuilder_Validation(t *testing.T) {
	_, err := deals.NewScheduleBuilder(dec(1), deals.DecayProjected)
	assert.ErrorIs(t, err, generic.ErrInvalidDecayRate)

	_, err = deals.NewScheduleBuilder(dec(-0.1), deals.DecayProjected)
	assert.ErrorIs(t, err, generic.ErrInvalidDecayRate)

	_, err = deals.NewScheduleBuilder(dec(0.2), "linear")
	assert.ErrorIs(t, err, generic.ErrInvalidDecayMode)

	b, err := deals.NewScheduleBuilder(dec(0.2), "")
	require.NoError(t, err)
	assert.Equal(t, deals.DecayProjected, b.Mode)
}

func TestParseDecayMode(t *testing.T) {
	m, err := deals.ParseDecayMode(" Stated ")
	require.NoError(t, err)
	assert.Equal(t, deals.DecayStated, m)

	m, err = deals.ParseDecayMode("")
	require.NoError(t, err)
	assert.Equal(t, deals.DecayProjected, m)

	_, err = deals.ParseDecayMode("exponential")
	assert.ErrorIs(t, err, generic.ErrInvalidDecayMode)
}

func TestValidate(t *testing.T) {
	b := deals.DefaultScheduleBuilder()

	assert.NoError(t, b.Validate(dealWith(jan1(2018))))
	assert.NoError(t, b.Validate(dealWith(jan1(2018), deals.NewContractYear(1, 0.1))))

	err := b.Validate(dealWith(jan1(2018), deals.NewContractYear(1, 12), deals.NewContractYear(1, 12), deals.NewContractYear(1, 0)))
	var mcy *generic.MalformedContractYearError
	require.ErrorAs(t, err, &mcy)
	assert.Equal(t, 2, mcy.YearIndex)
}

// =============================================================================
// SCHEDULE HELPERS
// =============================================================================

func TestWithSchedule_LeavesOriginalUntouched(t *testing.T) {
	deal := dealWith(jan1(2018), deals.NewContractYear(120000, 12))
	sched, err := deals.DefaultScheduleBuilder().Build(deal)
	require.NoError(t, err)

	updated := deal.WithSchedule(sched)

	assert.True(t, updated.FirstYearMonthlyRevenue.Equal(dec(10000)))
	assert.True(t, deal.FirstYearMonthlyRevenue.IsZero())
}

func TestScheduleValueAt(t *testing.T) {
	sched, err := deals.DefaultScheduleBuilder().Build(dealWith(jan1(2018),
		deals.NewContractYear(120000, 6),
		deals.NewContractYear(100000, 12),
	))
	require.NoError(t, err)

	tests := []struct {
		at   generic.TimePoint
		want float64
	}{
		{generic.NewTimePoint(2017, 12, 31), 0},
		{jan1(2018), 10000},
		{generic.NewTimePoint(2018, 6, 20), 10000},
		{generic.NewTimePoint(2018, 7, 1), 8000},
		{generic.NewTimePoint(2019, 6, 30), 8000},
		{generic.NewTimePoint(2019, 7, 1), 0},
	}
	for _, tt := range tests {
		assert.True(t, sched.ValueAt(tt.at).Equal(dec(tt.want)), "at %s: got %s", tt.at, sched.ValueAt(tt.at))
	}
}
