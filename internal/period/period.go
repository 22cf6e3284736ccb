// Package period provides calendar-day and reporting-period arithmetic.
//
// All dates handled by this package are calendar days represented as
// midnight UTC, regardless of the zone the underlying timestamp was
// recorded in. Use Day to convert a timestamp into that form.
package period

import (
	"fmt"
	"iter"
	"strings"
	"time"
)

// Granularity is the length of a reporting period.
type Granularity int

// Supported granularities.
const (
	Monthly Granularity = iota
	Quarterly
	HalfYearly
)

// All lists every granularity in ascending length.
var All = []Granularity{Monthly, Quarterly, HalfYearly}

func (g Granularity) String() string {
	switch g {
	case Monthly:
		return "month"
	case Quarterly:
		return "quarter"
	case HalfYearly:
		return "half"
	default:
		panic(fmt.Sprintf("unknown granularity %d", g))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (g Granularity) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Granularity) UnmarshalText(text []byte) error {
	parsed, err := ParseGranularity(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// months returns the number of calendar months in a period of granularity g.
func (g Granularity) months() int {
	switch g {
	case Monthly:
		return 1
	case Quarterly:
		return 3
	case HalfYearly:
		return 6
	default:
		panic(fmt.Sprintf("unknown granularity %d", g))
	}
}

// ParseGranularity parses a granularity name.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "month", "monthly":
		return Monthly, nil
	case "quarter", "quarterly":
		return Quarterly, nil
	case "half", "half-year", "halfyear", "half_year", "semiannual":
		return HalfYearly, nil
	default:
		return Monthly, fmt.Errorf("unknown granularity %q", s)
	}
}

// Day returns the calendar day of t in loc, as midnight UTC.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Range is an inclusive span of calendar days.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether day falls within r, boundaries included.
func (r Range) Contains(day time.Time) bool {
	return !day.Before(r.Start) && !day.After(r.End)
}

func (r Range) String() string {
	return r.Start.Format(time.DateOnly) + ".." + r.End.Format(time.DateOnly)
}

// StartOf returns the first day of the period of granularity g containing day.
func StartOf(day time.Time, g Granularity) time.Time {
	n := g.months()
	m := (int(day.Month())-1)/n*n + 1
	return time.Date(day.Year(), time.Month(m), 1, 0, 0, 0, 0, time.UTC)
}

// EndOf returns the last day of the period of granularity g containing day.
func EndOf(day time.Time, g Granularity) time.Time {
	// day 0 of the following month is the last day of this one
	return StartOf(day, g).AddDate(0, g.months(), -1)
}

// Containing returns the period of granularity g that contains day.
func Containing(day time.Time, g Granularity) Range {
	return Range{Start: StartOf(day, g), End: EndOf(day, g)}
}

// Enumerate returns every period of granularity g from the one containing
// from to the one containing to, in ascending order.
func Enumerate(from, to time.Time, g Granularity) []Range {
	if to.Before(from) {
		return nil
	}
	var out []Range
	for start := StartOf(from, g); !start.After(to); start = start.AddDate(0, g.months(), 0) {
		out = append(out, Containing(start, g))
	}
	return out
}

// Days iterates over every calendar day from from to to inclusive.
func Days(from, to time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			if !yield(d) {
				return
			}
		}
	}
}

// MonthsBetween returns the number of calendar months from the month of a
// to the month of b. It is negative when b is in an earlier month than a.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// MonthStart returns the first day of the month containing day.
func MonthStart(day time.Time) time.Time {
	return StartOf(day, Monthly)
}

// MonthEnd returns the last day of the month containing day.
func MonthEnd(day time.Time) time.Time {
	return EndOf(day, Monthly)
}
