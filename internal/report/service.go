// Package report builds per-user expense reports from an upstream source.
//
// The heavy lifting is a pure function (Build) over fetched transactions;
// Service wraps it with the single upstream fetch and optional snapshot
// publishing so the HTTP shell stays thin.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"splitlens/internal/core"
)

// Mode selects how the reporting window is derived from year+month.
type Mode string

const (
	// ModeCalendar is the plain calendar month (subject to the long-month
	// widening toggle).
	ModeCalendar Mode = "calendar"
	// ModeDiscover is the 26th-to-26th rolling window.
	ModeDiscover Mode = "discover"
)

func (m Mode) IsValid() bool {
	return m == ModeCalendar || m == ModeDiscover
}

// Params identifies one report request.
type Params struct {
	Year      int
	Month     int
	GroupID   int64
	GroupName string
	Mode      Mode
}

// Key is a stable cache key for these parameters.
func (p Params) Key() string {
	return fmt.Sprintf("%d-%02d-%d-%s", p.Year, p.Month, p.GroupID, p.Mode)
}

// Report is everything the rendering layer needs for one request.
type Report struct {
	Params      Params
	Range       core.DateRange
	User        core.User
	Records     []core.ExpenseRecord // descending by date, table order
	Categories  []core.CategoryTotal
	Daily       []core.DailyTotal // ascending by date
	Total       core.Money
	GeneratedAt time.Time
}

// Empty reports whether no qualifying expenses were found. This is the
// informational "no data" state, not an error.
func (r *Report) Empty() bool {
	return len(r.Records) == 0
}

// Options tune report computation.
type Options struct {
	// WidenLongMonths keeps the historical month-end boundary where 30/31
	// day months run through the 1st of the next month.
	WidenLongMonths bool
	// FetchLimit caps the upstream expense listing.
	FetchLimit int
}

// DefaultOptions matches the historical report behavior.
func DefaultOptions() Options {
	return Options{WidenLongMonths: true, FetchLimit: 1000}
}

// Service computes reports from an ExpenseSource.
type Service struct {
	source    ExpenseSource
	publisher SnapshotPublisher // nil disables snapshot events
	opts      Options
}

func NewService(source ExpenseSource, publisher SnapshotPublisher, opts Options) *Service {
	if opts.FetchLimit <= 0 {
		opts.FetchLimit = DefaultOptions().FetchLimit
	}
	return &Service{source: source, publisher: publisher, opts: opts}
}

// Range resolves the reporting window for the given parameters.
func (s *Service) Range(p Params) (core.DateRange, error) {
	switch p.Mode {
	case ModeDiscover:
		return core.DiscoverRange(p.Year, p.Month)
	case ModeCalendar, "":
		return core.CalendarMonthRange(p.Year, p.Month, s.opts.WidenLongMonths)
	default:
		return core.DateRange{}, fmt.Errorf("unknown report mode %q", p.Mode)
	}
}

// Compute fetches the raw transactions once and runs the pure pipeline.
// Upstream failures abort the render; an empty result does not.
func (s *Service) Compute(ctx context.Context, p Params) (*Report, error) {
	rng, err := s.Range(p)
	if err != nil {
		return nil, err
	}

	user, err := s.source.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve current user: %w", err)
	}

	txs, err := s.source.Expenses(ctx, p.GroupID, rng, s.opts.FetchLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch expenses: %w", err)
	}

	rep := Build(p, rng, user, txs)

	slog.InfoContext(ctx, "Report computed",
		"group_id", p.GroupID,
		"mode", string(p.Mode),
		"range", rng.String(),
		"transactions", len(txs),
		"records", len(rep.Records),
		"total_cents", rep.Total.Cents)

	if s.publisher != nil && !rep.Empty() {
		if err := s.publisher.PublishReportSnapshot(ctx, SnapshotFromReport(rep)); err != nil {
			// Snapshot delivery is best effort; the report itself stands.
			slog.ErrorContext(ctx, "Failed to publish report snapshot",
				"key", p.Key(), "error", err)
		}
	}

	return rep, nil
}

// Groups lists the selectable groups from the source.
func (s *Service) Groups(ctx context.Context) ([]core.Group, error) {
	groups, err := s.source.Groups(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch groups: %w", err)
	}
	return groups, nil
}

// Build is the pure transform from raw transactions to a finished report.
func Build(p Params, rng core.DateRange, user core.User, txs []core.RawTransaction) *Report {
	records := core.Extract(txs, user.ID)
	return &Report{
		Params:      p,
		Range:       rng,
		User:        user,
		Records:     core.SortRecordsForTable(records),
		Categories:  core.SummarizeByCategory(records),
		Daily:       core.SummarizeByDay(records),
		Total:       core.Total(records),
		GeneratedAt: time.Now().UTC(),
	}
}
