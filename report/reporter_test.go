package report

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/revenue-engine/deals"
	"github.com/warp/revenue-engine/generic"
)

func sampleBatch() deals.Batch {
	book := []deals.Deal{
		{
			ID:            "deal-b",
			Customer:      "Contoso",
			StartDate:     generic.NewTimePoint(2018, 1, 1),
			ContractYears: []deals.ContractYear{deals.NewContractYear(120000, 6), deals.NewContractYear(100000, 12)},
			MonthlyRevenue: map[generic.Month]decimal.Decimal{
				generic.NewMonth(2018, 1): decimal.NewFromInt(100),
				generic.NewMonth(2018, 2): decimal.NewFromInt(50),
			},
		},
		{
			ID:            "bad",
			StartDate:     generic.NewTimePoint(2018, 4, 1),
			ContractYears: []deals.ContractYear{deals.NewContractYear(1000, 0)},
			MonthlyRevenue: map[generic.Month]decimal.Decimal{
				generic.NewMonth(2018, 1): decimal.NewFromInt(30),
				generic.NewMonth(2018, 3): decimal.NewFromInt(20),
			},
		},
	}
	return deals.Process(context.Background(), book, deals.DefaultScheduleBuilder(), deals.Options{})
}

func TestBuild(t *testing.T) {
	cutoff := generic.NewMonth(2018, 2)
	r := Build(sampleBatch(), deals.DefaultScheduleBuilder(), Options{Cutoff: &cutoff})

	assert.Equal(t, "Revenue report", r.Title)
	require.Len(t, r.Deals, 2)
	assert.Equal(t, 1, r.Failed)
	assert.True(t, r.Deals[0].FirstYear.Equal(decimal.NewFromInt(10000)))
	assert.Len(t, r.Deals[0].Breakpoints, 4)
	assert.Error(t, r.Deals[1].Err)

	assert.Equal(t, []QuarterLine{{Quarter: "2018Q1", Deals: 1}, {Quarter: "2018Q2", Deals: 1}}, r.Quarters)

	require.Len(t, r.Series, 3)
	assert.True(t, r.Total.Equal(decimal.NewFromInt(200)))
	require.NotNil(t, r.Peak)
	assert.Equal(t, generic.NewMonth(2018, 1), r.Peak.Month)
	require.NotNil(t, r.Cutoff)
	assert.True(t, r.Cutoff.Total.Equal(decimal.NewFromInt(50)))
}

func TestBuild_Period(t *testing.T) {
	from := generic.NewMonth(2018, 2)
	r := Build(sampleBatch(), deals.DefaultScheduleBuilder(), Options{Period: generic.Period{From: &from}})

	require.Len(t, r.Series, 2)
	assert.True(t, r.Total.Equal(decimal.NewFromInt(70)))
}

func TestReporter_Handle(t *testing.T) {
	var buf bytes.Buffer
	r := Build(sampleBatch(), deals.DefaultScheduleBuilder(), Options{Title: "Bookings"})

	require.NoError(t, NewReporter(&buf).Handle(r))

	out := buf.String()
	assert.Contains(t, out, "Bookings")
	assert.Contains(t, out, "Decay: 0.2 per year (projected)")
	assert.Contains(t, out, "first year monthly: 10000.00")
	assert.Contains(t, out, "2018-07-01  8000.00")
	assert.Contains(t, out, "ERROR: malformed contract year")
	assert.Contains(t, out, "2018-01  130.00")
	assert.Contains(t, out, "Total: 200.00")
	assert.Contains(t, out, "Peak:  2018-01 130.00")
}
