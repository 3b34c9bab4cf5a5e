package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"splitlens/internal/amqp"
	"splitlens/internal/report"
	"splitlens/internal/storage"
)

type fakeExporter struct {
	exported []report.Snapshot
	err      error
}

func (f *fakeExporter) ExportSnapshot(_ context.Context, snap report.Snapshot) error {
	if f.err != nil {
		return f.err
	}
	f.exported = append(f.exported, snap)
	return nil
}

func newTestStorage(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func snapshotMessage(month int) *amqp.SnapshotMessage {
	return amqp.NewSnapshotMessage(report.Snapshot{
		Year:        2025,
		Month:       month,
		Mode:        "calendar",
		GroupID:     3,
		GroupName:   "Trip",
		RangeStart:  "2025-05-01",
		RangeEnd:    "2025-06-01",
		TotalCents:  4200,
		Categories:  []report.CategoryCents{{Category: "Food", Cents: 4200}},
		RecordCount: 3,
		GeneratedAt: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
	})
}

func TestSnapshotWorker_HandleSnapshotMessage(t *testing.T) {
	repo := newTestStorage(t)
	exporter := &fakeExporter{}
	w := NewSnapshotWorker(repo, exporter)
	ctx := context.Background()

	if err := w.HandleSnapshotMessage(ctx, snapshotMessage(5)); err != nil {
		t.Fatalf("HandleSnapshotMessage() error = %v", err)
	}

	if len(exporter.exported) != 1 {
		t.Fatalf("len(exported) = %d, want 1", len(exporter.exported))
	}

	stored, err := repo.ListSnapshots(ctx, 2025, 5, 3)
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("len(stored) = %d, want 1", len(stored))
	}
	if stored[0].ExportStatus != storage.ExportStatusExported {
		t.Errorf("ExportStatus = %q, want %q", stored[0].ExportStatus, storage.ExportStatusExported)
	}
}

func TestSnapshotWorker_ExportFailureStillStores(t *testing.T) {
	repo := newTestStorage(t)
	exporter := &fakeExporter{err: errors.New("sheets unavailable")}
	w := NewSnapshotWorker(repo, exporter)
	ctx := context.Background()

	if err := w.HandleSnapshotMessage(ctx, snapshotMessage(5)); err != nil {
		t.Fatalf("HandleSnapshotMessage() error = %v, want nil on export failure", err)
	}

	stored, err := repo.ListSnapshots(ctx, 2025, 5, 3)
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("len(stored) = %d, want 1", len(stored))
	}
	if stored[0].ExportStatus != storage.ExportStatusError {
		t.Errorf("ExportStatus = %q, want %q", stored[0].ExportStatus, storage.ExportStatusError)
	}
}

func TestSnapshotWorker_FailedExportIsRetried(t *testing.T) {
	repo := newTestStorage(t)
	exporter := &fakeExporter{err: errors.New("sheets unavailable")}
	w := NewSnapshotWorker(repo, exporter)
	ctx := context.Background()

	if err := w.HandleSnapshotMessage(ctx, snapshotMessage(5)); err != nil {
		t.Fatalf("HandleSnapshotMessage() error = %v", err)
	}

	// Outage over, the next periodic scan must pick the snapshot back up.
	exporter.err = nil

	n, err := w.ProcessPendingExports(ctx, 100)
	if err != nil {
		t.Fatalf("ProcessPendingExports() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("ProcessPendingExports() = %d, want 1", n)
	}

	stored, err := repo.ListSnapshots(ctx, 2025, 5, 3)
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("len(stored) = %d, want 1", len(stored))
	}
	if stored[0].ExportStatus != storage.ExportStatusExported {
		t.Errorf("ExportStatus = %q, want %q", stored[0].ExportStatus, storage.ExportStatusExported)
	}
}

func TestSnapshotWorker_DuplicateSnapshotSkipped(t *testing.T) {
	repo := newTestStorage(t)
	exporter := &fakeExporter{}
	w := NewSnapshotWorker(repo, exporter)
	ctx := context.Background()

	if err := w.HandleSnapshotMessage(ctx, snapshotMessage(5)); err != nil {
		t.Fatalf("HandleSnapshotMessage() error = %v", err)
	}
	if err := w.HandleSnapshotMessage(ctx, snapshotMessage(5)); err != nil {
		t.Fatalf("HandleSnapshotMessage() repeat error = %v", err)
	}

	stored, err := repo.ListSnapshots(ctx, 2025, 5, 3)
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("len(stored) = %d, want 1 after duplicate message", len(stored))
	}
	if len(exporter.exported) != 1 {
		t.Errorf("len(exported) = %d, want 1 after duplicate message", len(exporter.exported))
	}

	// A changed total is a new snapshot, not a duplicate.
	changed := snapshotMessage(5)
	changed.Snapshot.TotalCents = 9900
	if err := w.HandleSnapshotMessage(ctx, changed); err != nil {
		t.Fatalf("HandleSnapshotMessage() changed error = %v", err)
	}
	stored, err = repo.ListSnapshots(ctx, 2025, 5, 3)
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("len(stored) = %d, want 2 after changed snapshot", len(stored))
	}
}

func TestSnapshotWorker_NilExporterKeepsPending(t *testing.T) {
	repo := newTestStorage(t)
	w := NewSnapshotWorker(repo, nil)
	ctx := context.Background()

	if err := w.HandleSnapshotMessage(ctx, snapshotMessage(5)); err != nil {
		t.Fatalf("HandleSnapshotMessage() error = %v", err)
	}

	pending, err := repo.GetPendingExports(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingExports() error = %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("len(pending) = %d, want 1", len(pending))
	}

	n, err := w.ProcessPendingExports(ctx, 10)
	if err != nil {
		t.Fatalf("ProcessPendingExports() error = %v", err)
	}
	if n != 0 {
		t.Errorf("ProcessPendingExports() = %d, want 0 with nil exporter", n)
	}
}

func TestSnapshotWorker_ProcessPendingExports(t *testing.T) {
	repo := newTestStorage(t)
	ctx := context.Background()

	// Store two snapshots with no exporter, then attach one and recover.
	withoutExporter := NewSnapshotWorker(repo, nil)
	if err := withoutExporter.HandleSnapshotMessage(ctx, snapshotMessage(5)); err != nil {
		t.Fatalf("HandleSnapshotMessage() error = %v", err)
	}
	if err := withoutExporter.HandleSnapshotMessage(ctx, snapshotMessage(6)); err != nil {
		t.Fatalf("HandleSnapshotMessage() error = %v", err)
	}

	exporter := &fakeExporter{}
	w := NewSnapshotWorker(repo, exporter)

	n, err := w.ProcessPendingExports(ctx, 10)
	if err != nil {
		t.Fatalf("ProcessPendingExports() error = %v", err)
	}
	if n != 2 {
		t.Errorf("ProcessPendingExports() = %d, want 2", n)
	}
	if len(exporter.exported) != 2 {
		t.Errorf("len(exported) = %d, want 2", len(exporter.exported))
	}

	pending, err := repo.GetPendingExports(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingExports() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("len(pending) = %d, want 0 after recovery", len(pending))
	}
}
