package deals

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/generic"
)

// =============================================================================
// AGGREGATE SERIES - Total monthly revenue across deals
// =============================================================================

// Series maps a calendar month to total revenue. Read-only once returned.
type Series map[generic.Month]decimal.Decimal

// SeriesPoint is one month of a series, for ordered output.
type SeriesPoint struct {
	Month generic.Month
	Total decimal.Decimal
}

// Aggregate sums every deal's MonthlyRevenue per month. The month set is the
// union of all deals' months; deals missing a month contribute zero. Deals are
// not modified.
func Aggregate(deals []Deal) Series {
	series := make(Series)
	for _, d := range deals {
		for month, value := range d.MonthlyRevenue {
			series[month] = series[month].Add(value)
		}
	}
	return series
}

// Points returns the series in ascending month order.
func (s Series) Points() []SeriesPoint {
	points := make([]SeriesPoint, 0, len(s))
	for m, total := range s {
		points = append(points, SeriesPoint{Month: m, Total: total})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Month.Before(points[j].Month) })
	return points
}

// Peak returns the month with the highest total. ok is false for an empty series.
// Ties resolve to the earliest month.
func (s Series) Peak() (point SeriesPoint, ok bool) {
	for _, p := range s.Points() {
		if !ok || p.Total.GreaterThan(point.Total) {
			point, ok = p, true
		}
	}
	return point, ok
}

// Within returns the months of s inside the period.
func (s Series) Within(p generic.Period) Series {
	out := make(Series)
	for m, total := range s {
		if p.Contains(m) {
			out[m] = total
		}
	}
	return out
}

// Total is the sum over every month.
func (s Series) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range s {
		total = total.Add(v)
	}
	return total
}
