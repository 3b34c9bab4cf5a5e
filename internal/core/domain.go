package core

import (
	"errors"
	"time"
)

type (
	// Date is a calendar date; time-of-day carries no meaning anywhere in
	// the pipeline.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Participant is one user's side of a shared transaction.
	Participant struct {
		UserID    int64
		OwedShare Money
		PaidShare Money
	}

	// RawTransaction is the typed shape of an upstream expense, parsed once
	// at the API boundary.
	RawTransaction struct {
		Category     string // empty when the source has no category
		Date         Date
		Description  string
		Participants []Participant
	}

	// ExpenseRecord is one user's share of a single transaction.
	ExpenseRecord struct {
		Category    string
		Amount      Money
		Date        Date
		Description string
	}

	// Group is a named collection of shared expenses at the source service.
	// ID 0 is the non-group bucket.
	Group struct {
		ID   int64
		Name string
	}

	// User identifies the person whose shares are being reported.
	User struct {
		ID   int64
		Name string
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrMalformedRecord = errors.New("malformed transaction record")
)

// NewDate creates a Date from year, month, day (UTC, midnight).
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as 1-12.
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

// Key returns the YYYY-MM-DD form used for grouping and display.
func (d Date) Key() string {
	return d.Format("2006-01-02")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

// Add returns the sum of two amounts.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

func (r ExpenseRecord) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if r.Category == "" {
		return errors.New("empty category")
	}
	return r.Amount.Validate()
}
