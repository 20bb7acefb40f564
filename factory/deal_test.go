package factory

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/revenue-engine/generic"
)

func TestParseDeal_FullRecord(t *testing.T) {
	f := NewDealFactory()

	deal, err := f.ParseDeal(`{
		"id": "deal-001",
		"customer": "Acme",
		"quarter": "2017Q4",
		"start_date": "2018-01-01",
		"tcv": 220000,
		"duration_max": 18,
		"years": [[120000, 6], [100000, 12.5]],
		"monthly_revenue": {"2018-01": 10000, "2018-02": "9999.99"}
	}`)
	require.NoError(t, err)

	assert.Equal(t, generic.DealID("deal-001"), deal.ID)
	assert.Equal(t, "Acme", deal.Customer)
	assert.Equal(t, "2017Q4", deal.Quarter, "explicit quarter wins over start date")
	assert.Equal(t, "2018-01-01", deal.StartDate.String())
	assert.True(t, deal.TCV.Equal(decimal.NewFromInt(220000)))
	require.Len(t, deal.ContractYears, 2)
	assert.True(t, deal.ContractYears[1].DurationMonths.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, deal.MonthlyRevenue[generic.NewMonth(2018, 2)].Equal(decimal.RequireFromString("9999.99")))
}

func TestParseDeal_YearsForms(t *testing.T) {
	tests := []struct {
		name  string
		years string
		want  int
	}{
		{"pair list", `[[120000, 12]]`, 1},
		{"zero", `0`, 0},
		{"null", `null`, 0},
		{"empty list", `[]`, 0},
		{"tuple literal", `"[(120000, 6), (100000, 12)]"`, 2},
		{"empty literal", `""`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deal, err := NewDealFactory().ParseDeal(`{"start_date": "2018-01-01", "years": ` + tt.years + `}`)
			require.NoError(t, err)
			assert.Len(t, deal.ContractYears, tt.want)
		})
	}

	deal, err := NewDealFactory().ParseDeal(`{"start_date": "2018-01-01"}`)
	require.NoError(t, err)
	assert.Empty(t, deal.ContractYears, "missing years")
}

func TestParseDeal_TupleLiteralValues(t *testing.T) {
	deal, err := NewDealFactory().ParseDeal(`{"start_date": "2018-01-01", "years": "[(120000, 6), (100000, 11.5)]"}`)
	require.NoError(t, err)

	require.Len(t, deal.ContractYears, 2)
	assert.True(t, deal.ContractYears[0].TotalValue.Equal(decimal.NewFromInt(120000)))
	assert.True(t, deal.ContractYears[1].DurationMonths.Equal(decimal.RequireFromString("11.5")))
}

func TestParseDeal_Invalid(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"short pair", `{"start_date": "2018-01-01", "years": [[120000]]}`},
		{"long pair", `{"start_date": "2018-01-01", "years": [[1, 2, 3]]}`},
		{"not a list", `{"start_date": "2018-01-01", "years": {"a": 1}}`},
		{"bad date", `{"start_date": "01/01/2018"}`},
		{"missing date", `{}`},
		{"bad month key", `{"start_date": "2018-01-01", "monthly_revenue": {"Jan": 1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDealFactory().ParseDeal(tt.json)
			assert.Error(t, err)
		})
	}

	_, err := NewDealFactory().ParseDeal(`{"start_date": "nope"}`)
	assert.ErrorIs(t, err, generic.ErrInvalidDeal)
}

func TestFromJSON_Defaults(t *testing.T) {
	f := &DealFactory{NewID: func() string { return "generated" }}

	deal, err := f.ParseDeal(`{"start_date": "2018-08-15"}`)
	require.NoError(t, err)

	assert.Equal(t, generic.DealID("generated"), deal.ID)
	assert.Equal(t, "2018Q3", deal.Quarter)
}

func TestNewDealFactory_GeneratesUUIDs(t *testing.T) {
	f := NewDealFactory()

	a, err := f.ParseDeal(`{"start_date": "2018-01-01"}`)
	require.NoError(t, err)
	b, err := f.ParseDeal(`{"start_date": "2018-01-01"}`)
	require.NoError(t, err)

	assert.Len(t, string(a.ID), 36)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestFromJSON_MonthKeysForSameMonthAdd(t *testing.T) {
	deal, err := NewDealFactory().ParseDeal(`{
		"start_date": "2018-01-01",
		"monthly_revenue": {"2018-01": 100, "2018-01-31": 20}
	}`)
	require.NoError(t, err)

	require.Len(t, deal.MonthlyRevenue, 1)
	assert.True(t, deal.MonthlyRevenue[generic.NewMonth(2018, 1)].Equal(decimal.NewFromInt(120)))
}

func TestParseDeals(t *testing.T) {
	f := NewDealFactory()

	book, err := f.ParseDeals([]byte(`[
		{"id": "a", "start_date": "2018-01-01", "years": [[1, 1]]},
		{"id": "b", "start_date": "2018-02-01", "years": 0}
	]`))
	require.NoError(t, err)
	assert.Len(t, book, 2)

	_, err = f.ParseDeals([]byte(`[{"id": "a", "start_date": "2018-01-01"}, {"id": "b", "start_date": "x"}]`))
	assert.ErrorContains(t, err, "deal 1")
}

func TestToJSON_RoundTrip(t *testing.T) {
	f := NewDealFactory()
	deal, err := f.ParseDeal(`{
		"id": "a", "customer": "Acme", "start_date": "2018-01-31",
		"tcv": 1.5, "duration_max": 6,
		"years": [[1.5, 6]],
		"monthly_revenue": {"2018-02": 0.25}
	}`)
	require.NoError(t, err)

	raw, err := json.Marshal(f.ToJSON(deal))
	require.NoError(t, err)

	again, err := f.ParseDeal(string(raw))
	require.NoError(t, err)
	assert.Equal(t, deal.ID, again.ID)
	assert.Equal(t, deal.Quarter, again.Quarter)
	assert.True(t, deal.StartDate.Equal(again.StartDate))
	assert.True(t, again.ContractYears[0].TotalValue.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, again.MonthlyRevenue[generic.NewMonth(2018, 2)].Equal(decimal.RequireFromString("0.25")))
}

func TestToJSON_EmptyYearsIsList(t *testing.T) {
	f := NewDealFactory()
	deal, err := f.ParseDeal(`{"id": "a", "start_date": "2018-01-01", "years": 0}`)
	require.NoError(t, err)

	raw, err := json.Marshal(f.ToJSON(deal))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"years":[]`)
}
