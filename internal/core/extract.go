package core

import "strings"

// UncategorizedName is assigned when the source transaction carries no
// category.
const UncategorizedName = "Uncategorized"

// excludedCategory is dropped entirely, matched case-insensitively. It is the
// source service's catch-all for settlements and payments, not real spending.
const excludedCategory = "general"

// Extract turns raw transactions into the target user's expense records.
//
// Per transaction, in order: resolve the category (absent -> Uncategorized,
// "General" -> drop), locate the user's participant entry (absent -> drop),
// then apply the attribution rule: a positive owed share wins outright; a
// positive paid share counts only when nothing is owed; transactions where
// the user neither owes nor paid contribute nothing. Each transaction
// therefore yields exactly zero or one record, and every emitted amount is
// strictly positive.
//
// Extract is a pure function: same input order in, same output order out.
func Extract(txs []RawTransaction, userID int64) []ExpenseRecord {
	var out []ExpenseRecord
	for _, tx := range txs {
		rec, ok := extractOne(tx, userID)
		if !ok {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func extractOne(tx RawTransaction, userID int64) (ExpenseRecord, bool) {
	category := strings.TrimSpace(tx.Category)
	if category == "" {
		category = UncategorizedName
	}
	if strings.EqualFold(category, excludedCategory) {
		return ExpenseRecord{}, false
	}

	p, ok := findParticipant(tx.Participants, userID)
	if !ok {
		return ExpenseRecord{}, false
	}

	// Attribution decision table: owed beats paid, zero/zero emits nothing.
	var amount Money
	switch {
	case p.OwedShare.Cents > 0:
		amount = p.OwedShare
	case p.PaidShare.Cents > 0:
		amount = p.PaidShare
	default:
		return ExpenseRecord{}, false
	}

	return ExpenseRecord{
		Category:    category,
		Amount:      amount,
		Date:        tx.Date,
		Description: tx.Description,
	}, true
}

func findParticipant(parts []Participant, userID int64) (Participant, bool) {
	for _, p := range parts {
		if p.UserID == userID {
			return p, true
		}
	}
	return Participant{}, false
}
