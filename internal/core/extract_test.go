package core

import (
	"reflect"
	"testing"
)

const targetUser int64 = 777

func tx(category string, date Date, desc string, parts ...Participant) RawTransaction {
	return RawTransaction{Category: category, Date: date, Description: desc, Participants: parts}
}

func share(userID int64, owedCents, paidCents int64) Participant {
	return Participant{
		UserID:    userID,
		OwedShare: Money{Cents: owedCents},
		PaidShare: Money{Cents: paidCents},
	}
}

func TestExtract_AttributionRule(t *testing.T) {
	date := NewDate(2025, 3, 14)

	tests := []struct {
		name      string
		tx        RawTransaction
		wantCount int
		wantCents int64
	}{
		{
			name:      "owed share wins even when paid share is nonzero",
			tx:        tx("Food", date, "lunch", share(targetUser, 1250, 1250)),
			wantCount: 1,
			wantCents: 1250,
		},
		{
			name:      "owed only",
			tx:        tx("Food", date, "lunch", share(targetUser, 900, 0)),
			wantCount: 1,
			wantCents: 900,
		},
		{
			name:      "paid with nothing owed",
			tx:        tx("Food", date, "fronted for a friend", share(targetUser, 0, 3000)),
			wantCount: 1,
			wantCents: 3000,
		},
		{
			name:      "zero owed and zero paid emits nothing",
			tx:        tx("Food", date, "not mine", share(targetUser, 0, 0)),
			wantCount: 0,
		},
		{
			name:      "user not a participant",
			tx:        tx("Food", date, "someone else's", share(42, 500, 500)),
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract([]RawTransaction{tt.tx}, targetUser)
			if len(got) != tt.wantCount {
				t.Fatalf("Extract() returned %d records, want %d", len(got), tt.wantCount)
			}
			if tt.wantCount == 1 && got[0].Amount.Cents != tt.wantCents {
				t.Errorf("amount = %d cents, want %d", got[0].Amount.Cents, tt.wantCents)
			}
		})
	}
}

func TestExtract_CategoryPolicy(t *testing.T) {
	date := NewDate(2025, 3, 1)

	t.Run("general is excluded regardless of shares", func(t *testing.T) {
		for _, cat := range []string{"General", "general", "GENERAL", "GeNeRaL"} {
			got := Extract([]RawTransaction{tx(cat, date, "settle up", share(targetUser, 500, 0))}, targetUser)
			if len(got) != 0 {
				t.Errorf("category %q should be excluded, got %d records", cat, len(got))
			}
		}
	})

	t.Run("absent category becomes Uncategorized", func(t *testing.T) {
		got := Extract([]RawTransaction{tx("", date, "mystery", share(targetUser, 0, 3000))}, targetUser)
		if len(got) != 1 {
			t.Fatalf("expected one record, got %d", len(got))
		}
		if got[0].Category != UncategorizedName {
			t.Errorf("category = %q, want %q", got[0].Category, UncategorizedName)
		}
		if got[0].Amount.Cents != 3000 {
			t.Errorf("amount = %d, want 3000", got[0].Amount.Cents)
		}
	})

	t.Run("named categories pass through", func(t *testing.T) {
		got := Extract([]RawTransaction{tx("Food", date, "lunch", share(targetUser, 1250, 1250))}, targetUser)
		if len(got) != 1 || got[0].Category != "Food" || got[0].Amount.Cents != 1250 {
			t.Fatalf("unexpected result: %+v", got)
		}
	})
}

func TestExtract_EmitsAtMostOneRecordPerTransaction(t *testing.T) {
	date := NewDate(2025, 5, 2)
	txs := []RawTransaction{
		tx("Food", date, "dinner",
			share(11, 800, 0),
			share(targetUser, 700, 2100),
			share(12, 600, 0),
		),
	}
	got := Extract(txs, targetUser)
	if len(got) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(got))
	}
	if got[0].Amount.Cents != 700 {
		t.Errorf("amount = %d, want owed share 700", got[0].Amount.Cents)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	txs := []RawTransaction{
		tx("Food", NewDate(2025, 1, 3), "groceries", share(targetUser, 2200, 0)),
		tx("General", NewDate(2025, 1, 4), "payment", share(targetUser, 100, 0)),
		tx("", NewDate(2025, 1, 5), "cab", share(targetUser, 0, 1500)),
		tx("Travel", NewDate(2025, 1, 6), "train", share(99, 500, 0)),
	}
	first := Extract(txs, targetUser)
	second := Extract(txs, targetUser)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Extract is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 records, got %d", len(first))
	}
	// Output preserves input order.
	if first[0].Description != "groceries" || first[1].Description != "cab" {
		t.Errorf("unexpected record order: %+v", first)
	}
}

func TestExtract_EveryAmountStrictlyPositive(t *testing.T) {
	txs := []RawTransaction{
		tx("Food", NewDate(2025, 2, 1), "a", share(targetUser, 1, 0)),
		tx("Food", NewDate(2025, 2, 2), "b", share(targetUser, 0, 0)),
		tx("Food", NewDate(2025, 2, 3), "c", share(targetUser, 0, 1)),
	}
	for _, r := range Extract(txs, targetUser) {
		if r.Amount.Cents <= 0 {
			t.Errorf("record %q has non-positive amount %d", r.Description, r.Amount.Cents)
		}
	}
}
