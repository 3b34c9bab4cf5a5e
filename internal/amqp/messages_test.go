package amqp

import (
	"testing"

	"splitlens/internal/report"
)

func TestSnapshotMessage_Roundtrip(t *testing.T) {
	snap := report.Snapshot{
		Year: 2025, Month: 3, Mode: "calendar",
		GroupID: 5, GroupName: "Flat",
		RangeStart: "2025-03-01", RangeEnd: "2025-04-01",
		TotalCents:  3250,
		Categories:  []report.CategoryCents{{Category: "Food", Cents: 3250}},
		RecordCount: 2,
	}

	body, err := NewSnapshotMessage(snap).ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	got, err := SnapshotMessageFromJSON(body)
	if err != nil {
		t.Fatalf("SnapshotMessageFromJSON() error = %v", err)
	}
	if got.Snapshot.TotalCents != 3250 || got.Snapshot.GroupName != "Flat" {
		t.Errorf("snapshot = %+v", got.Snapshot)
	}
	if len(got.Snapshot.Categories) != 1 || got.Snapshot.Categories[0].Category != "Food" {
		t.Errorf("categories = %+v", got.Snapshot.Categories)
	}
	if got.PublishedAt.IsZero() {
		t.Error("PublishedAt should be set")
	}
}

func TestSnapshotMessageFromJSON_Invalid(t *testing.T) {
	if _, err := SnapshotMessageFromJSON([]byte("not json")); err == nil {
		t.Error("expected error for invalid payload")
	}
}
