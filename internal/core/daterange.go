package core

import (
	"fmt"
	"time"
)

// DateRange is the half-open-ish reporting window passed to the upstream
// fetch: the source returns expenses dated after Start and before End.
type DateRange struct {
	Start Date
	End   Date
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.Start.Key(), r.End.Key())
}

// CalendarMonthRange returns the reporting window for a calendar month.
//
// With widenLongMonths set, months of 30 or 31 days end on the 1st of the
// following month instead of their own last day. The widening reproduces the
// long-standing report boundary users reconcile against; it is a toggle so it
// can be retired without a code change.
func CalendarMonthRange(year, month int, widenLongMonths bool) (DateRange, error) {
	if month < 1 || month > 12 {
		return DateRange{}, fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	start := NewDate(year, month, 1)
	lastDay := daysIn(year, month)
	if widenLongMonths && lastDay >= 30 {
		return DateRange{Start: start, End: firstOfNextMonth(year, month)}, nil
	}
	return DateRange{Start: start, End: NewDate(year, month, lastDay)}, nil
}

// DiscoverRange returns the rolling window from the 26th of the prior month
// through the 26th of the selected month.
func DiscoverRange(year, month int) (DateRange, error) {
	if month < 1 || month > 12 {
		return DateRange{}, fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	prevYear, prevMonth := year, month-1
	if prevMonth < 1 {
		prevMonth = 12
		prevYear--
	}
	return DateRange{
		Start: NewDate(prevYear, prevMonth, 26),
		End:   NewDate(year, month, 26),
	}, nil
}

func firstOfNextMonth(year, month int) Date {
	if month == 12 {
		return NewDate(year+1, 1, 1)
	}
	return NewDate(year, month+1, 1)
}

func daysIn(year, month int) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
