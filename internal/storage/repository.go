package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"splitlens/internal/report"

	_ "modernc.org/sqlite"
)

const (
	ExportStatusPending  = "pending"
	ExportStatusExported = "exported"
	ExportStatusError    = "error"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// StoredSnapshot is a report snapshot with its persistence metadata.
type StoredSnapshot struct {
	ID           int64
	Snapshot     report.Snapshot
	ExportStatus string
	ExportedAt   *time.Time
	CreatedAt    time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveSnapshot stores a report snapshot and returns its database ID.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, snap report.Snapshot) (int64, error) {
	categoriesJSON, err := json.Marshal(snap.Categories)
	if err != nil {
		return 0, fmt.Errorf("marshal categories: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO report_snapshots
			(year, month, mode, group_id, group_name, range_start, range_end,
			 total_cents, record_count, categories_json, generated_at, export_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.Year, snap.Month, snap.Mode, snap.GroupID, snap.GroupName,
		snap.RangeStart, snap.RangeEnd, snap.TotalCents, snap.RecordCount,
		string(categoriesJSON), snap.GeneratedAt, ExportStatusPending)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot saved to SQLite",
		"id", id,
		"year", snap.Year,
		"month", snap.Month,
		"group", snap.GroupName,
		"total_cents", snap.TotalCents)

	return id, nil
}

// GetSnapshot retrieves a single snapshot by ID.
func (r *SQLiteRepository) GetSnapshot(ctx context.Context, id int64) (*StoredSnapshot, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	stored, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("get snapshot by id: %w", err)
	}
	return stored, nil
}

// ListSnapshots returns the stored snapshots for a period, newest first.
func (r *SQLiteRepository) ListSnapshots(ctx context.Context, year, month int, groupID int64) ([]StoredSnapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		selectColumns+` WHERE year = ? AND month = ? AND group_id = ? ORDER BY created_at DESC, id DESC`,
		year, month, groupID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	return collectSnapshots(rows)
}

// GetPendingExports returns snapshots not yet exported, oldest first.
// Rows marked with an export error are included so transient failures
// get retried by the periodic scan.
func (r *SQLiteRepository) GetPendingExports(ctx context.Context, limit int) ([]StoredSnapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		selectColumns+` WHERE export_status IN (?, ?) ORDER BY created_at ASC, id ASC LIMIT ?`,
		ExportStatusPending, ExportStatusError, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending exports: %w", err)
	}
	defer rows.Close()

	return collectSnapshots(rows)
}

// MarkExported marks a snapshot as successfully exported.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	if err := r.setExportStatus(ctx, id, ExportStatusExported, true); err != nil {
		return fmt.Errorf("mark snapshot exported: %w", err)
	}
	slog.InfoContext(ctx, "Snapshot marked as exported", "id", id)
	return nil
}

// MarkExportError marks a snapshot as having failed export. The snapshot
// stays eligible for GetPendingExports and is retried on the next scan.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id int64) error {
	if err := r.setExportStatus(ctx, id, ExportStatusError, false); err != nil {
		return fmt.Errorf("mark snapshot export error: %w", err)
	}
	slog.WarnContext(ctx, "Snapshot marked with export error", "id", id)
	return nil
}

func (r *SQLiteRepository) setExportStatus(ctx context.Context, id int64, status string, setExportedAt bool) error {
	var (
		result sql.Result
		err    error
	)
	if setExportedAt {
		result, err = r.db.ExecContext(ctx,
			`UPDATE report_snapshots SET export_status = ?, exported_at = CURRENT_TIMESTAMP WHERE id = ?`,
			status, id)
	} else {
		result, err = r.db.ExecContext(ctx,
			`UPDATE report_snapshots SET export_status = ? WHERE id = ?`,
			status, id)
	}
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}

const selectColumns = `
	SELECT id, year, month, mode, group_id, group_name, range_start, range_end,
	       total_cents, record_count, categories_json, generated_at,
	       export_status, exported_at, created_at
	FROM report_snapshots`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*StoredSnapshot, error) {
	var (
		stored         StoredSnapshot
		categoriesJSON string
		exportedAt     sql.NullTime
	)
	err := row.Scan(
		&stored.ID,
		&stored.Snapshot.Year,
		&stored.Snapshot.Month,
		&stored.Snapshot.Mode,
		&stored.Snapshot.GroupID,
		&stored.Snapshot.GroupName,
		&stored.Snapshot.RangeStart,
		&stored.Snapshot.RangeEnd,
		&stored.Snapshot.TotalCents,
		&stored.Snapshot.RecordCount,
		&categoriesJSON,
		&stored.Snapshot.GeneratedAt,
		&stored.ExportStatus,
		&exportedAt,
		&stored.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(categoriesJSON), &stored.Snapshot.Categories); err != nil {
		return nil, fmt.Errorf("unmarshal categories: %w", err)
	}
	if exportedAt.Valid {
		stored.ExportedAt = &exportedAt.Time
	}

	return &stored, nil
}

func collectSnapshots(rows *sql.Rows) ([]StoredSnapshot, error) {
	var snapshots []StoredSnapshot
	for rows.Next() {
		stored, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snapshots = append(snapshots, *stored)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snapshots, nil
}
