package engine

import (
	"testing"
	"time"
)

// Wednesday 2024-03-13, a mid-week mid-month reference date.
var reference = time.Date(2024, 3, 13, 15, 30, 0, 0, time.UTC)

func TestResolvePeriod(t *testing.T) {
	tests := []struct {
		name      string
		preset    Preset
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "today",
			preset:    PresetToday,
			wantStart: time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond),
		},
		{
			name:      "yesterday",
			preset:    PresetYesterday,
			wantStart: time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond),
		},
		{
			name:      "this week starts Monday",
			preset:    PresetThisWeek,
			wantStart: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond),
		},
		{
			name:      "last week",
			preset:    PresetLastWeek,
			wantStart: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond),
		},
		{
			name:      "this month",
			preset:    PresetThisMonth,
			wantStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond),
		},
		{
			name:      "last month",
			preset:    PresetLastMonth,
			wantStart: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond),
		},
		{
			name:      "this year",
			preset:    PresetThisYear,
			wantStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond),
		},
		{
			name:      "all time uses epoch floor",
			preset:    PresetAllTime,
			wantStart: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolvePeriod(tt.preset, reference)
			if !got.Start.Equal(tt.wantStart) {
				t.Errorf("Start = %v, want %v", got.Start, tt.wantStart)
			}
			if !got.End.Equal(tt.wantEnd) {
				t.Errorf("End = %v, want %v", got.End, tt.wantEnd)
			}
		})
	}
}

func TestResolvePeriodDeterministic(t *testing.T) {
	a := ResolvePeriod(PresetThisMonth, reference)
	b := ResolvePeriod(PresetThisMonth, reference)
	if a != b {
		t.Errorf("same reference date produced different periods: %+v vs %+v", a, b)
	}
}

func TestResolveCustomPeriod(t *testing.T) {
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

	p := ResolveCustomPeriod(start, end, reference)
	if p.IsEmpty() {
		t.Fatal("valid custom range reported empty")
	}
	if !p.Contains(time.Date(2024, 1, 20, 23, 0, 0, 0, time.UTC)) {
		t.Error("end day should be inclusive to its last instant")
	}
	if p.Contains(time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC)) {
		t.Error("day after end must be excluded")
	}
}

func TestResolveCustomPeriodInverted(t *testing.T) {
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	p := ResolveCustomPeriod(start, end, reference)
	if !p.IsEmpty() {
		t.Error("inverted range must resolve to an empty interval, not an error")
	}
	wantAnchor := time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)
	if !p.Start.Equal(wantAnchor) || !p.End.Equal(wantAnchor) {
		t.Errorf("empty interval anchored at %v/%v, want %v", p.Start, p.End, wantAnchor)
	}
}

func TestPeriodPrevious(t *testing.T) {
	month := ResolvePeriod(PresetThisMonth, reference)
	prev := month.Previous()
	if got, want := prev.Start, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("previous month start = %v, want %v", got, want)
	}

	year := ResolvePeriod(PresetThisYear, reference)
	if got, want := year.Previous().Start.Year(), 2023; got != want {
		t.Errorf("previous year = %d, want %d", got, want)
	}

	week := ResolvePeriod(PresetThisWeek, reference)
	if got, want := week.Previous().Start, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("previous week start = %v, want %v", got, want)
	}
}
