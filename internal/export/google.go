package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"splitlens/internal/report"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// SnapshotExporter appends report snapshots to an external sink.
type SnapshotExporter interface {
	ExportSnapshot(ctx context.Context, snap report.Snapshot) error
}

// SheetsExporter appends one row per snapshot to a Google Sheet,
// keeping a spreadsheet history of monthly totals.
type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ SnapshotExporter = (*SheetsExporter)(nil)

type Credentials struct {
	SpreadsheetID string
	SheetName     string
	// One of the two must be set. File wins when both are present.
	CredentialsFile string
	CredentialsJSON string
}

// NewSheetsExporter creates a Sheets client using service account credentials.
func NewSheetsExporter(ctx context.Context, creds Credentials) (*SheetsExporter, error) {
	if strings.TrimSpace(creds.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheetName := strings.TrimSpace(creds.SheetName)
	if sheetName == "" {
		sheetName = "Snapshots"
	}

	credentialsJSON, err := resolveCredentials(creds)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets exporter initialized",
		"spreadsheet_id", creds.SpreadsheetID,
		"sheet", sheetName)

	return &SheetsExporter{
		svc:           svc,
		spreadsheetID: creds.SpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func resolveCredentials(creds Credentials) ([]byte, error) {
	switch {
	case strings.TrimSpace(creds.CredentialsFile) != "":
		data, err := os.ReadFile(creds.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		return data, nil
	case strings.TrimSpace(creds.CredentialsJSON) != "":
		return []byte(creds.CredentialsJSON), nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON)")
	}
}

// ExportSnapshot appends a snapshot row to the configured sheet.
// Columns: exported at, year, month, mode, group, range, total, records, top category.
func (e *SheetsExporter) ExportSnapshot(ctx context.Context, snap report.Snapshot) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}

	total := float64(snap.TotalCents) / 100.0
	topCategory := ""
	if len(snap.Categories) > 0 {
		topCategory = snap.Categories[0].Category
	}

	row := []any{
		time.Now().UTC().Format(time.RFC3339),
		snap.Year,
		snap.Month,
		snap.Mode,
		snap.GroupName,
		fmt.Sprintf("%s..%s", snap.RangeStart, snap.RangeEnd),
		total,
		snap.RecordCount,
		topCategory,
	}

	rng := fmt.Sprintf("%s!A:I", e.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{row}}

	_, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append snapshot row to sheet %s: %w", e.sheetName, err)
	}

	slog.InfoContext(ctx, "Snapshot exported to Google Sheets",
		"year", snap.Year,
		"month", snap.Month,
		"group", snap.GroupName,
		"total_cents", snap.TotalCents)

	return nil
}
