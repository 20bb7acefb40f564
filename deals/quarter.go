package deals

import (
	"fmt"
	"sort"

	"github.com/warp/revenue-engine/generic"
)

// QuarterOf labels a date with its calendar quarter, e.g. "2018Q3".
func QuarterOf(tp generic.TimePoint) string {
	if tp.IsZero() {
		return ""
	}
	return fmt.Sprintf("%dQ%d", tp.Year(), (int(tp.Month())-1)/3+1)
}

// GroupByQuarter indexes deal IDs by booking quarter, preserving input order
// within each quarter. Presentation layers use it for legends.
func GroupByQuarter(deals []Deal) map[string][]generic.DealID {
	groups := make(map[string][]generic.DealID)
	for _, d := range deals {
		q := d.BookingQuarter()
		groups[q] = append(groups[q], d.ID)
	}
	return groups
}

// Quarters returns the keys of a grouping in chronological order.
func Quarters(groups map[string][]generic.DealID) []string {
	keys := make([]string, 0, len(groups))
	for q := range groups {
		keys = append(keys, q)
	}
	sort.Strings(keys)
	return keys
}
