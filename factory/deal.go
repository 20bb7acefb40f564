/*
Package factory provides JSON to Go deal conversion.

PURPOSE:
  Converts JSON deal definitions into deals.Deal values. This is the
  boundary where loosely typed source rows (spreadsheet exports, API
  bodies, fixture files) become typed, exact-decimal deal records.

JSON SCHEMA:
  {
    "id": "deal-001",
    "customer": "Acme",
    "quarter": "2018Q1",
    "start_date": "2018-01-01",
    "tcv": 220000,
    "duration_max": 18,
    "years": [[120000, 6], [100000, 12]],
    "monthly_revenue": {"2018-01": 10000, "2018-02": 10000}
  }

  years:
    A list of [total_value, duration_months] pairs, in contract order,
    or the same list as a string literal with tuples: "[(120000, 6)]".
    0, null, [] or a missing field all mean "no contract years".
    Durations may be fractional. Validation of durations is the schedule
    builder's job, not the factory's.

  monthly_revenue:
    Keys are YYYY-MM (a YYYY-MM-DD key is accepted and truncated to its month).

DEFAULTS:
  - Missing id: a random UUID
  - Missing quarter: derived from start_date (e.g. "2018Q1")

USAGE:
  f := factory.NewDealFactory()
  deal, err := f.ParseDeal(jsonString)
  all, err := f.ParseDeals(fileBytes) // a JSON array

SEE ALSO:
  - deals/types.go: Deal type definition
  - api/dto.go: Wraps DealJSON for HTTP
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/deals"
	"github.com/warp/revenue-engine/generic"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// DealJSON is the JSON representation of a deal.
type DealJSON struct {
	ID             string                     `json:"id,omitempty"`
	Customer       string                     `json:"customer,omitempty"`
	Quarter        string                     `json:"quarter,omitempty"`
	StartDate      string                     `json:"start_date"`
	TCV            decimal.Decimal            `json:"tcv"`
	DurationMax    decimal.Decimal            `json:"duration_max"`
	Years          ContractYearsJSON          `json:"years"`
	MonthlyRevenue map[string]decimal.Decimal `json:"monthly_revenue,omitempty"`
}

// ContractYearsJSON is a list of [total_value, duration_months] pairs.
type ContractYearsJSON [][2]decimal.Decimal

// UnmarshalJSON accepts a pair list, or 0/null for "no contract years".
// A string holding a literal list such as "[(120000, 12), (90000, 6)]", as
// exported from the source spreadsheet, is accepted too.
func (c *ContractYearsJSON) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("0")) {
		*c = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var literal string
		if err := json.Unmarshal(trimmed, &literal); err != nil {
			return fmt.Errorf("%w: years: %v", generic.ErrInvalidDeal, err)
		}
		literal = strings.NewReplacer("(", "[", ")", "]").Replace(strings.TrimSpace(literal))
		if literal == "" {
			literal = "0"
		}
		return c.UnmarshalJSON([]byte(literal))
	}
	var raw [][]decimal.Decimal
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("%w: years must be a list of [total_value, duration_months] pairs: %v", generic.ErrInvalidDeal, err)
	}
	out := make(ContractYearsJSON, len(raw))
	for i, pair := range raw {
		if len(pair) != 2 {
			return fmt.Errorf("%w: years[%d] has %d elements, want 2", generic.ErrInvalidDeal, i, len(pair))
		}
		out[i] = [2]decimal.Decimal{pair[0], pair[1]}
	}
	*c = out
	return nil
}

// =============================================================================
// DEAL FACTORY
// =============================================================================

// DealFactory converts JSON deals to Go structs.
type DealFactory struct {
	// NewID generates IDs for deals that omit one.
	NewID func() string
}

// NewDealFactory creates a new deal factory.
func NewDealFactory() *DealFactory {
	return &DealFactory{NewID: uuid.NewString}
}

// ParseDeal parses a JSON object into a Deal.
func (f *DealFactory) ParseDeal(jsonStr string) (deals.Deal, error) {
	var dj DealJSON
	if err := json.Unmarshal([]byte(jsonStr), &dj); err != nil {
		return deals.Deal{}, fmt.Errorf("failed to parse deal JSON: %w", err)
	}
	return f.FromJSON(dj)
}

// ParseDeals parses a JSON array of deals.
func (f *DealFactory) ParseDeals(data []byte) ([]deals.Deal, error) {
	var djs []DealJSON
	if err := json.Unmarshal(data, &djs); err != nil {
		return nil, fmt.Errorf("failed to parse deals JSON: %w", err)
	}
	out := make([]deals.Deal, 0, len(djs))
	for i, dj := range djs {
		d, err := f.FromJSON(dj)
		if err != nil {
			return nil, fmt.Errorf("deal %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// FromJSON converts DealJSON to deals.Deal.
func (f *DealFactory) FromJSON(dj DealJSON) (deals.Deal, error) {
	start, err := generic.ParseDate(dj.StartDate)
	if err != nil {
		return deals.Deal{}, fmt.Errorf("%w: start_date: %w", generic.ErrInvalidDeal, err)
	}

	id := dj.ID
	if id == "" {
		id = f.NewID()
	}

	deal := deals.Deal{
		ID:          generic.DealID(id),
		Customer:    dj.Customer,
		Quarter:     dj.Quarter,
		TCV:         dj.TCV,
		DurationMax: dj.DurationMax,
		StartDate:   start,
	}
	if deal.Quarter == "" {
		deal.Quarter = deals.QuarterOf(start)
	}

	for _, pair := range dj.Years {
		deal.ContractYears = append(deal.ContractYears, deals.ContractYear{
			TotalValue:     pair[0],
			DurationMonths: pair[1],
		})
	}

	if len(dj.MonthlyRevenue) > 0 {
		deal.MonthlyRevenue = make(map[generic.Month]decimal.Decimal, len(dj.MonthlyRevenue))
		for key, value := range dj.MonthlyRevenue {
			m, err := generic.ParseMonth(key)
			if err != nil {
				return deals.Deal{}, fmt.Errorf("%w: monthly_revenue: %w", generic.ErrInvalidDeal, err)
			}
			// Two keys for the same month (e.g. "2018-01" and "2018-01-31") add up.
			deal.MonthlyRevenue[m] = deal.MonthlyRevenue[m].Add(value)
		}
	}

	return deal, nil
}

// ToJSON converts a Deal to DealJSON.
func (f *DealFactory) ToJSON(deal deals.Deal) DealJSON {
	dj := DealJSON{
		ID:          string(deal.ID),
		Customer:    deal.Customer,
		Quarter:     deal.Quarter,
		StartDate:   deal.StartDate.String(),
		TCV:         deal.TCV,
		DurationMax: deal.DurationMax,
		Years:       ContractYearsJSON{},
	}
	for _, y := range deal.ContractYears {
		dj.Years = append(dj.Years, [2]decimal.Decimal{y.TotalValue, y.DurationMonths})
	}
	if len(deal.MonthlyRevenue) > 0 {
		dj.MonthlyRevenue = make(map[string]decimal.Decimal, len(deal.MonthlyRevenue))
		for m, v := range deal.MonthlyRevenue {
			dj.MonthlyRevenue[m.String()] = v
		}
	}
	return dj
}
