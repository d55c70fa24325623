// Package engine implements the aggregation and forecasting engine: period
// resolution, record grouping, period summaries, month forecasting, insight
// generation and budget/goal progress evaluation.
//
// Every entry point takes an explicit reference time instead of reading the
// wall clock, and every function is a pure transformation: callers pass
// snapshots in and get derived values back. Nothing here does I/O.
package engine

import (
	"fmt"
	"time"
)

// Preset names the supported period shortcuts.
type Preset string

const (
	PresetToday     Preset = "today"
	PresetYesterday Preset = "yesterday"
	PresetThisWeek  Preset = "this-week"
	PresetLastWeek  Preset = "last-week"
	PresetThisMonth Preset = "this-month"
	PresetLastMonth Preset = "last-month"
	PresetThisYear  Preset = "this-year"
	PresetAllTime   Preset = "all-time"
	PresetCustom    Preset = "custom"
)

// allTimeFloor bounds the all-time preset so resolution stays O(1) and never
// scans data for the earliest record.
var allTimeFloor = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// Period is a resolved date interval. Start is the first instant in range;
// End is the last instant of the final calendar day (23:59:59.999999999),
// so both bounds are inclusive.
type Period struct {
	Preset Preset
	Start  time.Time
	End    time.Time
	Label  string
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// IsEmpty reports whether the period covers no time at all, the degenerate
// result of a custom range with start after end.
func (p Period) IsEmpty() bool {
	return !p.Start.Before(p.End)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// startOfWeek returns the Monday of t's week.
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return startOfDay(t).AddDate(0, 0, -offset)
}

// ResolvePeriod turns a preset and a reference date into a concrete
// interval. Unknown presets resolve to this-month, the engine's default
// aggregation window.
func ResolvePeriod(preset Preset, referenceDate time.Time) Period {
	ref := referenceDate
	switch preset {
	case PresetToday:
		return Period{Preset: preset, Start: startOfDay(ref), End: endOfDay(ref), Label: "Today"}
	case PresetYesterday:
		y := ref.AddDate(0, 0, -1)
		return Period{Preset: preset, Start: startOfDay(y), End: endOfDay(y), Label: "Yesterday"}
	case PresetThisWeek:
		start := startOfWeek(ref)
		return Period{Preset: preset, Start: start, End: endOfDay(start.AddDate(0, 0, 6)), Label: "This week"}
	case PresetLastWeek:
		start := startOfWeek(ref).AddDate(0, 0, -7)
		return Period{Preset: preset, Start: start, End: endOfDay(start.AddDate(0, 0, 6)), Label: "Last week"}
	case PresetLastMonth:
		first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location()).AddDate(0, -1, 0)
		last := first.AddDate(0, 1, 0).Add(-time.Nanosecond)
		return Period{Preset: preset, Start: first, End: last, Label: first.Format("January 2006")}
	case PresetThisYear:
		first := time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, ref.Location())
		last := first.AddDate(1, 0, 0).Add(-time.Nanosecond)
		return Period{Preset: preset, Start: first, End: last, Label: fmt.Sprintf("%d", ref.Year())}
	case PresetAllTime:
		return Period{Preset: preset, Start: allTimeFloor, End: endOfDay(ref), Label: "All time"}
	default:
		first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
		last := first.AddDate(0, 1, 0).Add(-time.Nanosecond)
		return Period{Preset: PresetThisMonth, Start: first, End: last, Label: first.Format("January 2006")}
	}
}

// ResolveCustomPeriod builds a period from explicit bounds. A start after
// end yields an empty interval anchored at the reference day rather than an
// error; the caller decides how to surface that.
func ResolveCustomPeriod(start, end, referenceDate time.Time) Period {
	if start.After(end) {
		anchor := startOfDay(referenceDate)
		return Period{Preset: PresetCustom, Start: anchor, End: anchor, Label: "Empty range"}
	}
	return Period{
		Preset: PresetCustom,
		Start:  startOfDay(start),
		End:    endOfDay(end),
		Label:  fmt.Sprintf("%s - %s", start.Format("2006-01-02"), end.Format("2006-01-02")),
	}
}

// Previous returns the equivalent preceding period, used for
// period-over-period comparisons. Calendar presets shift by their calendar
// unit; custom ranges shift back by their own length.
func (p Period) Previous() Period {
	switch p.Preset {
	case PresetToday, PresetYesterday:
		d := p.Start.AddDate(0, 0, -1)
		return Period{Preset: p.Preset, Start: startOfDay(d), End: endOfDay(d), Label: d.Format("2006-01-02")}
	case PresetThisWeek, PresetLastWeek:
		start := p.Start.AddDate(0, 0, -7)
		return Period{Preset: p.Preset, Start: start, End: endOfDay(start.AddDate(0, 0, 6)), Label: "Previous week"}
	case PresetThisMonth, PresetLastMonth:
		first := p.Start.AddDate(0, -1, 0)
		last := first.AddDate(0, 1, 0).Add(-time.Nanosecond)
		return Period{Preset: p.Preset, Start: first, End: last, Label: first.Format("January 2006")}
	case PresetThisYear:
		first := p.Start.AddDate(-1, 0, 0)
		last := first.AddDate(1, 0, 0).Add(-time.Nanosecond)
		return Period{Preset: p.Preset, Start: first, End: last, Label: fmt.Sprintf("%d", first.Year())}
	case PresetAllTime:
		// All-time has no predecessor; compare against itself-empty.
		return Period{Preset: p.Preset, Start: allTimeFloor, End: allTimeFloor, Label: "All time"}
	default:
		length := p.End.Sub(p.Start)
		end := p.Start.Add(-time.Nanosecond)
		return Period{Preset: p.Preset, Start: end.Add(-length), End: end, Label: "Previous range"}
	}
}

// MonthPeriod resolves the calendar month containing the given year/month
// in UTC, a convenience for budget recomputation and month endpoints.
func MonthPeriod(year int, month time.Month) Period {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return Period{Preset: PresetThisMonth, Start: first, End: last, Label: first.Format("January 2006")}
}
