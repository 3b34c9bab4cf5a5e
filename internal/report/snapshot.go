package report

import "time"

// CategoryCents is the compact category total carried inside a snapshot.
type CategoryCents struct {
	Category string `json:"category"`
	Cents    int64  `json:"cents"`
}

// Snapshot is the durable record of a generated report: enough to rebuild
// history views and spreadsheet rows without refetching the source.
type Snapshot struct {
	Year        int             `json:"year"`
	Month       int             `json:"month"`
	Mode        string          `json:"mode"`
	GroupID     int64           `json:"group_id"`
	GroupName   string          `json:"group_name"`
	RangeStart  string          `json:"range_start"` // YYYY-MM-DD
	RangeEnd    string          `json:"range_end"`
	TotalCents  int64           `json:"total_cents"`
	Categories  []CategoryCents `json:"categories"`
	RecordCount int             `json:"record_count"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// SnapshotFromReport flattens a report into its snapshot form.
func SnapshotFromReport(r *Report) Snapshot {
	cats := make([]CategoryCents, 0, len(r.Categories))
	for _, ct := range r.Categories {
		cats = append(cats, CategoryCents{Category: ct.Category, Cents: ct.Amount.Cents})
	}
	return Snapshot{
		Year:        r.Params.Year,
		Month:       r.Params.Month,
		Mode:        string(r.Params.Mode),
		GroupID:     r.Params.GroupID,
		GroupName:   r.Params.GroupName,
		RangeStart:  r.Range.Start.Key(),
		RangeEnd:    r.Range.End.Key(),
		TotalCents:  r.Total.Cents,
		Categories:  cats,
		RecordCount: len(r.Records),
		GeneratedAt: r.GeneratedAt,
	}
}
