package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// TIME POINT - Calendar date used for schedule breakpoints
// =============================================================================

type TimePoint struct {
	Time        time.Time
	Granularity Granularity
}

type Granularity int

const (
	GranularityDay Granularity = iota
	GranularityMonth
)

// Layouts used for parsing and display.
const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), Granularity: GranularityDay}
}

func FromTime(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TimePoint{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return FromTime(t), nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return tp.Before(other) || tp.Equal(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return tp.After(other) || tp.Equal(other) }

func (tp TimePoint) normalize() time.Time {
	switch tp.Granularity {
	case GranularityMonth:
		return time.Date(tp.Time.Year(), tp.Time.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// Arithmetic

func (tp TimePoint) AddDays(n int) TimePoint {
	return TimePoint{Time: tp.Time.AddDate(0, 0, n), Granularity: tp.Granularity}
}

// AddMonths moves n calendar months, clamping the day to the end of the
// target month: Jan 31 + 1 month is Feb 28 (or 29), never Mar 3.
func (tp TimePoint) AddMonths(n int) TimePoint {
	year, month, day := tp.Time.Date()
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	last := daysIn(first.Year(), first.Month())
	if day > last {
		day = last
	}
	return TimePoint{
		Time:        time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC),
		Granularity: tp.Granularity,
	}
}

// Properties
func (tp TimePoint) Year() int         { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month { return tp.Time.Month() }
func (tp TimePoint) Day() int          { return tp.Time.Day() }
func (tp TimePoint) IsZero() bool      { return tp.Time.IsZero() }

func (tp TimePoint) String() string {
	if tp.Granularity == GranularityMonth {
		return tp.Time.Format(MonthLayout)
	}
	return tp.Time.Format(DateLayout)
}

// =============================================================================
// MONTH - Calendar month key for revenue series
// =============================================================================

// Month identifies a calendar month. It is comparable and safe as a map key.
type Month struct {
	Year  int
	Month time.Month
}

func NewMonth(year int, month time.Month) Month {
	return MonthOf(NewTimePoint(year, month, 1))
}

func MonthOf(tp TimePoint) Month {
	return Month{Year: tp.Year(), Month: tp.Month()}
}

// ParseMonth accepts YYYY-MM, or a full YYYY-MM-DD date whose day is ignored.
func ParseMonth(s string) (Month, error) {
	if t, err := time.Parse(MonthLayout, s); err == nil {
		return Month{Year: t.Year(), Month: t.Month()}, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Month{Year: t.Year(), Month: t.Month()}, nil
	}
	return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
}

func (m Month) Start() TimePoint {
	return TimePoint{Time: time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC), Granularity: GranularityMonth}
}

func (m Month) End() TimePoint { return EndOfMonth(m.Year, m.Month) }

func (m Month) Add(n int) Month { return MonthOf(m.Start().AddMonths(n)) }

func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

func (m Month) After(other Month) bool { return other.Before(m) }

func (m Month) String() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)) }

// MarshalText lets Month be used as a JSON object key.
func (m Month) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }
func EndOfMonth(year int, month time.Month) TimePoint {
	return NewTimePoint(year, month, daysIn(year, month))
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
