package report

import (
	"context"
	"errors"
	"testing"

	"splitlens/internal/core"
)

type fakeSource struct {
	user    core.User
	userErr error
	groups  []core.Group
	txs     []core.RawTransaction
	txErr   error
	lastRng core.DateRange
	lastGrp int64
	lastLim int
	fetches int
}

func (f *fakeSource) CurrentUser(_ context.Context) (core.User, error) {
	return f.user, f.userErr
}

func (f *fakeSource) Groups(_ context.Context) ([]core.Group, error) {
	return f.groups, nil
}

func (f *fakeSource) Expenses(_ context.Context, groupID int64, rng core.DateRange, limit int) ([]core.RawTransaction, error) {
	f.fetches++
	f.lastGrp = groupID
	f.lastRng = rng
	f.lastLim = limit
	return f.txs, f.txErr
}

type fakePublisher struct {
	snaps []Snapshot
	err   error
}

func (f *fakePublisher) PublishReportSnapshot(_ context.Context, snap Snapshot) error {
	f.snaps = append(f.snaps, snap)
	return f.err
}

func ownedTx(category string, date core.Date, desc string, owedCents int64) core.RawTransaction {
	return core.RawTransaction{
		Category:    category,
		Date:        date,
		Description: desc,
		Participants: []core.Participant{
			{UserID: 777, OwedShare: core.Money{Cents: owedCents}},
		},
	}
}

func TestService_Compute(t *testing.T) {
	src := &fakeSource{
		user: core.User{ID: 777, Name: "Ada"},
		txs: []core.RawTransaction{
			ownedTx("Food", core.NewDate(2025, 3, 10), "lunch", 1250),
			ownedTx("General", core.NewDate(2025, 3, 11), "settle up", 9999),
			ownedTx("Food", core.NewDate(2025, 3, 12), "dinner", 2000),
		},
	}
	pub := &fakePublisher{}
	svc := NewService(src, pub, DefaultOptions())

	rep, err := svc.Compute(context.Background(), Params{
		Year: 2025, Month: 3, GroupID: 5, GroupName: "Flat", Mode: ModeCalendar,
	})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if src.fetches != 1 {
		t.Errorf("expected exactly one upstream fetch, got %d", src.fetches)
	}
	if src.lastGrp != 5 || src.lastLim != 1000 {
		t.Errorf("fetch args: group=%d limit=%d", src.lastGrp, src.lastLim)
	}
	// March has 31 days; the widened window runs through April 1st.
	if src.lastRng.Start.Key() != "2025-03-01" || src.lastRng.End.Key() != "2025-04-01" {
		t.Errorf("range = %s", src.lastRng.String())
	}

	if len(rep.Records) != 2 || rep.Total.Cents != 3250 {
		t.Errorf("records=%d total=%d, want 2 records totalling 3250", len(rep.Records), rep.Total.Cents)
	}
	// Table order is date-descending.
	if rep.Records[0].Description != "dinner" {
		t.Errorf("first table row = %q, want most recent", rep.Records[0].Description)
	}

	if len(pub.snaps) != 1 {
		t.Fatalf("expected one published snapshot, got %d", len(pub.snaps))
	}
	snap := pub.snaps[0]
	if snap.TotalCents != 3250 || snap.GroupName != "Flat" || snap.RangeEnd != "2025-04-01" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestService_Compute_DiscoverMode(t *testing.T) {
	src := &fakeSource{user: core.User{ID: 777}}
	svc := NewService(src, nil, DefaultOptions())

	_, err := svc.Compute(context.Background(), Params{Year: 2025, Month: 5, Mode: ModeDiscover})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if src.lastRng.Start.Key() != "2025-04-26" || src.lastRng.End.Key() != "2025-05-26" {
		t.Errorf("discover range = %s", src.lastRng.String())
	}
}

func TestService_Compute_EmptyIsNotAnError(t *testing.T) {
	src := &fakeSource{user: core.User{ID: 777}}
	pub := &fakePublisher{}
	svc := NewService(src, pub, DefaultOptions())

	rep, err := svc.Compute(context.Background(), Params{Year: 2025, Month: 2, Mode: ModeCalendar})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if !rep.Empty() {
		t.Error("report should be empty")
	}
	// Empty reports are not worth snapshotting.
	if len(pub.snaps) != 0 {
		t.Errorf("expected no snapshots for empty report, got %d", len(pub.snaps))
	}
}

func TestService_Compute_SourceErrorsPropagate(t *testing.T) {
	wantErr := errors.New("upstream down")

	t.Run("current user", func(t *testing.T) {
		svc := NewService(&fakeSource{userErr: wantErr}, nil, DefaultOptions())
		if _, err := svc.Compute(context.Background(), Params{Year: 2025, Month: 1, Mode: ModeCalendar}); !errors.Is(err, wantErr) {
			t.Errorf("error = %v, want wrapped upstream error", err)
		}
	})

	t.Run("expenses", func(t *testing.T) {
		svc := NewService(&fakeSource{txErr: wantErr}, nil, DefaultOptions())
		if _, err := svc.Compute(context.Background(), Params{Year: 2025, Month: 1, Mode: ModeCalendar}); !errors.Is(err, wantErr) {
			t.Errorf("error = %v, want wrapped upstream error", err)
		}
	})
}

func TestService_Compute_PublishFailureDoesNotFailRender(t *testing.T) {
	src := &fakeSource{
		user: core.User{ID: 777},
		txs:  []core.RawTransaction{ownedTx("Food", core.NewDate(2025, 1, 2), "x", 100)},
	}
	pub := &fakePublisher{err: errors.New("broker closed")}
	svc := NewService(src, pub, DefaultOptions())

	if _, err := svc.Compute(context.Background(), Params{Year: 2025, Month: 1, Mode: ModeCalendar}); err != nil {
		t.Fatalf("Compute() should tolerate publish failure, got %v", err)
	}
}

func TestService_Range_WideningToggle(t *testing.T) {
	svc := NewService(&fakeSource{}, nil, Options{WidenLongMonths: false, FetchLimit: 10})
	rng, err := svc.Range(Params{Year: 2025, Month: 3, Mode: ModeCalendar})
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	if rng.End.Key() != "2025-03-31" {
		t.Errorf("end = %s, want 2025-03-31 with widening off", rng.End.Key())
	}
}

func TestParams_Key(t *testing.T) {
	a := Params{Year: 2025, Month: 3, GroupID: 5, Mode: ModeCalendar}
	b := Params{Year: 2025, Month: 3, GroupID: 5, Mode: ModeDiscover}
	if a.Key() == b.Key() {
		t.Error("different modes must produce different cache keys")
	}
}
