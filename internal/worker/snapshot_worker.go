package worker

import (
	"context"
	"fmt"
	"log/slog"

	"splitlens/internal/amqp"
	"splitlens/internal/export"
	"splitlens/internal/report"
	"splitlens/internal/storage"
)

// SnapshotWorker consumes report snapshot messages, stores them in SQLite
// and optionally exports them to Google Sheets.
type SnapshotWorker struct {
	storage  *storage.SQLiteRepository
	exporter export.SnapshotExporter
}

// NewSnapshotWorker creates a worker. exporter may be nil, in which case
// snapshots are stored locally and stay in pending state.
func NewSnapshotWorker(storage *storage.SQLiteRepository, exporter export.SnapshotExporter) *SnapshotWorker {
	return &SnapshotWorker{
		storage:  storage,
		exporter: exporter,
	}
}

// HandleSnapshotMessage processes a single snapshot message from AMQP.
// The snapshot is always persisted first so an export failure never
// loses data; export is retried later by ProcessPendingExports.
func (w *SnapshotWorker) HandleSnapshotMessage(ctx context.Context, msg *amqp.SnapshotMessage) error {
	slog.InfoContext(ctx, "Processing snapshot message",
		"year", msg.Snapshot.Year,
		"month", msg.Snapshot.Month,
		"group", msg.Snapshot.GroupName,
		"published_at", msg.PublishedAt)

	// The dashboard republishes on every cache-miss recompute, so an
	// unchanged report would otherwise pile up duplicate history rows.
	history, err := w.storage.ListSnapshots(ctx, msg.Snapshot.Year, msg.Snapshot.Month, msg.Snapshot.GroupID)
	if err != nil {
		return fmt.Errorf("list snapshot history: %w", err)
	}
	if len(history) > 0 && snapshotUnchanged(history[0].Snapshot, msg.Snapshot) {
		slog.InfoContext(ctx, "Snapshot unchanged since last message, skipping",
			"year", msg.Snapshot.Year,
			"month", msg.Snapshot.Month,
			"group", msg.Snapshot.GroupName,
			"total_cents", msg.Snapshot.TotalCents)
		return nil
	}

	id, err := w.storage.SaveSnapshot(ctx, msg.Snapshot)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if w.exporter == nil {
		return nil
	}

	if err := w.exporter.ExportSnapshot(ctx, msg.Snapshot); err != nil {
		slog.ErrorContext(ctx, "Failed to export snapshot, will retry",
			"id", id,
			"error", err)
		if markErr := w.storage.MarkExportError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "id", id, "error", markErr)
		}
		return nil
	}

	if err := w.storage.MarkExported(ctx, id); err != nil {
		return fmt.Errorf("mark snapshot exported: %w", err)
	}

	return nil
}

// ProcessPendingExports exports snapshots that were stored but not yet
// exported, e.g. after a crash or a Sheets outage. Returns the number
// of snapshots successfully exported.
func (w *SnapshotWorker) ProcessPendingExports(ctx context.Context, limit int) (int, error) {
	if w.exporter == nil {
		return 0, nil
	}

	pending, err := w.storage.GetPendingExports(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending exports: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending snapshot exports", "count", len(pending))

	exported := 0
	for _, stored := range pending {
		if ctx.Err() != nil {
			return exported, ctx.Err()
		}

		if err := w.exporter.ExportSnapshot(ctx, stored.Snapshot); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending snapshot",
				"id", stored.ID,
				"error", err)
			if markErr := w.storage.MarkExportError(ctx, stored.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark export error", "id", stored.ID, "error", markErr)
			}
			continue
		}

		if err := w.storage.MarkExported(ctx, stored.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark snapshot exported", "id", stored.ID, "error", err)
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Pending snapshot exports processed",
		"exported", exported,
		"total", len(pending))

	return exported, nil
}

// snapshotUnchanged reports whether prev and next describe the same report.
// Ranges and totals suffice; GeneratedAt differs on every recompute.
func snapshotUnchanged(prev, next report.Snapshot) bool {
	return prev.Mode == next.Mode &&
		prev.RangeStart == next.RangeStart &&
		prev.RangeEnd == next.RangeEnd &&
		prev.TotalCents == next.TotalCents &&
		prev.RecordCount == next.RecordCount
}
