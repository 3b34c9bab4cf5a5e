package report

import (
	"context"

	"splitlens/internal/core"
)

// Ports for outbound collaborators.
type (
	// ExpenseSource is the upstream expense-splitting service.
	ExpenseSource interface {
		CurrentUser(ctx context.Context) (core.User, error)
		Groups(ctx context.Context) ([]core.Group, error)
		Expenses(ctx context.Context, groupID int64, rng core.DateRange, limit int) ([]core.RawTransaction, error)
	}

	// SnapshotPublisher records that a report was generated. Implementations
	// must not block the render path for long.
	SnapshotPublisher interface {
		PublishReportSnapshot(ctx context.Context, snap Snapshot) error
	}
)
