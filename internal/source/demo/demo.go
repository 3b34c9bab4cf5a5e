// Package demo provides a deterministic in-memory expense source for
// local development, so the dashboard runs without Splitwise credentials.
package demo

import (
	"context"
	"errors"
	"time"

	"splitlens/internal/core"
)

const demoUserID int64 = 1

var demoGroups = []core.Group{
	{ID: 10, Name: "Flat"},
	{ID: 11, Name: "Road Trip"},
}

type Source struct{}

func New() *Source {
	return &Source{}
}

func (s *Source) CurrentUser(_ context.Context) (core.User, error) {
	return core.User{ID: demoUserID, Name: "Demo User"}, nil
}

func (s *Source) Groups(_ context.Context) ([]core.Group, error) {
	groups := make([]core.Group, len(demoGroups))
	copy(groups, demoGroups)
	return groups, nil
}

// Expenses generates a repeatable set of transactions inside the range.
// The shapes cover the cases the pipeline distinguishes: expenses the
// user owes on, expenses the user paid and is owed back for, payments
// in the excluded category and transactions without the user at all.
func (s *Source) Expenses(_ context.Context, _ int64, rng core.DateRange, limit int) ([]core.RawTransaction, error) {
	if limit < 1 {
		return nil, errors.New("limit must be at least 1")
	}

	templates := []struct {
		dayOffset   int
		category    string
		description string
		owedCents   int64
		paidCents   int64
		otherUser   bool
	}{
		{0, "Groceries", "Weekly shop", 2350, 0, false},
		{1, "Dining out", "Pizza night", 0, 4800, false},
		{2, "Utilities", "Electricity bill", 4125, 0, false},
		{3, "General", "Settle up", 0, 10000, false},
		{4, "", "Street food", 875, 0, false},
		{5, "Groceries", "Market run", 1990, 0, true},
		{6, "Transport", "Fuel split", 1560, 0, false},
		{9, "Entertainment", "Cinema tickets", 0, 2400, false},
		{12, "Groceries", "Top-up shop", 1215, 0, false},
		{15, "Utilities", "Internet", 2999, 0, false},
	}

	start := rng.Start.Time
	end := rng.End.Time
	span := int(end.Sub(start).Hours() / 24)

	var txs []core.RawTransaction
	for _, tpl := range templates {
		if len(txs) >= limit {
			break
		}
		if span > 0 && tpl.dayOffset >= span {
			continue
		}
		day := start.AddDate(0, 0, tpl.dayOffset)

		userID := demoUserID
		if tpl.otherUser {
			userID = demoUserID + 1
		}

		txs = append(txs, core.RawTransaction{
			Category:    tpl.category,
			Date:        core.Date{Time: day.In(time.UTC)},
			Description: tpl.description,
			Participants: []core.Participant{
				{
					UserID:    userID,
					OwedShare: core.Money{Cents: tpl.owedCents},
					PaidShare: core.Money{Cents: tpl.paidCents},
				},
			},
		})
	}

	return txs, nil
}
