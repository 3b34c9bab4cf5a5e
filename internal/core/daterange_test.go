package core

import (
	"errors"
	"testing"
)

func TestCalendarMonthRange(t *testing.T) {
	tests := []struct {
		name      string
		year      int
		month     int
		widen     bool
		wantStart string
		wantEnd   string
	}{
		{
			name: "february non-leap year stays unwidened",
			year: 2025, month: 2, widen: true,
			wantStart: "2025-02-01", wantEnd: "2025-02-28",
		},
		{
			name: "february leap year stays unwidened",
			year: 2024, month: 2, widen: true,
			wantStart: "2024-02-01", wantEnd: "2024-02-29",
		},
		{
			name: "31-day month widens to first of next month",
			year: 2025, month: 3, widen: true,
			wantStart: "2025-03-01", wantEnd: "2025-04-01",
		},
		{
			name: "30-day month widens to first of next month",
			year: 2025, month: 4, widen: true,
			wantStart: "2025-04-01", wantEnd: "2025-05-01",
		},
		{
			name: "december widens into january of next year",
			year: 2025, month: 12, widen: true,
			wantStart: "2025-12-01", wantEnd: "2026-01-01",
		},
		{
			name: "widening disabled uses the last calendar day",
			year: 2025, month: 3, widen: false,
			wantStart: "2025-03-01", wantEnd: "2025-03-31",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalendarMonthRange(tt.year, tt.month, tt.widen)
			if err != nil {
				t.Fatalf("CalendarMonthRange() error = %v", err)
			}
			if got.Start.Key() != tt.wantStart || got.End.Key() != tt.wantEnd {
				t.Errorf("range = %s..%s, want %s..%s",
					got.Start.Key(), got.End.Key(), tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestCalendarMonthRange_InvalidMonth(t *testing.T) {
	for _, m := range []int{0, 13, -1} {
		if _, err := CalendarMonthRange(2025, m, true); !errors.Is(err, ErrInvalidMonth) {
			t.Errorf("month %d: error = %v, want ErrInvalidMonth", m, err)
		}
	}
}

func TestDiscoverRange(t *testing.T) {
	tests := []struct {
		year, month        int
		wantStart, wantEnd string
	}{
		{2025, 5, "2025-04-26", "2025-05-26"},
		{2025, 1, "2024-12-26", "2025-01-26"}, // wraps into the prior year
	}
	for _, tt := range tests {
		got, err := DiscoverRange(tt.year, tt.month)
		if err != nil {
			t.Fatalf("DiscoverRange(%d, %d) error = %v", tt.year, tt.month, err)
		}
		if got.Start.Key() != tt.wantStart || got.End.Key() != tt.wantEnd {
			t.Errorf("DiscoverRange(%d, %d) = %s..%s, want %s..%s",
				tt.year, tt.month, got.Start.Key(), got.End.Key(), tt.wantStart, tt.wantEnd)
		}
	}

	if _, err := DiscoverRange(2025, 0); !errors.Is(err, ErrInvalidMonth) {
		t.Errorf("invalid month: error = %v, want ErrInvalidMonth", err)
	}
}
