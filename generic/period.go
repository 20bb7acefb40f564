package generic

// =============================================================================
// PERIOD - Inclusive month window for series queries
// =============================================================================

// Period bounds a revenue series by month, both ends inclusive.
// A nil bound is open.
//
// Examples:
//   - Calendar year 2018: From 2018-01, To 2018-12
//   - Everything up to the reporting cutoff: From nil, To 2018-09
type Period struct {
	From *Month
	To   *Month
}

// Contains returns true if the month is within the period.
func (p Period) Contains(m Month) bool {
	if p.From != nil && m.Before(*p.From) {
		return false
	}
	if p.To != nil && m.After(*p.To) {
		return false
	}
	return true
}

// Validate rejects a period whose end precedes its start.
func (p Period) Validate() error {
	if p.From != nil && p.To != nil && p.To.Before(*p.From) {
		return ErrInvalidPeriod
	}
	return nil
}

// Months lists every month in a closed period. Open periods return nil.
func (p Period) Months() []Month {
	if p.From == nil || p.To == nil || p.To.Before(*p.From) {
		return nil
	}
	var months []Month
	for m := *p.From; !m.After(*p.To); m = m.Add(1) {
		months = append(months, m)
	}
	return months
}

// String returns a string representation of the period.
func (p Period) String() string {
	from, to := "*", "*"
	if p.From != nil {
		from = p.From.String()
	}
	if p.To != nil {
		to = p.To.String()
	}
	return "[" + from + ", " + to + "]"
}

// ParsePeriod builds a period from optional YYYY-MM bounds; empty strings are open.
func ParsePeriod(from, to string) (Period, error) {
	var p Period
	if from != "" {
		m, err := ParseMonth(from)
		if err != nil {
			return Period{}, err
		}
		p.From = &m
	}
	if to != "" {
		m, err := ParseMonth(to)
		if err != nil {
			return Period{}, err
		}
		p.To = &m
	}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}
