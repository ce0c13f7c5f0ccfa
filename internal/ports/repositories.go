package ports

import (
	"context"
	"time"

	"launch-workflow/internal/domain"
)

// ApprovalRepository durably stores product approval state. The two Save
// operations persist their fields atomically as a unit and are conditional on
// expectedVersion: a mismatch fails with domain.ErrConflict and the stored
// record is left untouched. A successful save increments the stored version
// by one.
type ApprovalRepository interface {
	Create(ctx context.Context, state domain.ProductApprovalState) error
	Get(ctx context.Context, productID string) (domain.ProductApprovalState, error)
	SaveApprovalField(ctx context.Context, productID string, section domain.Section, record domain.ApprovalRecord, expectedVersion int64) error
	SaveLaunch(ctx context.Context, productID, launchedBy string, launchedAt time.Time, expectedVersion int64) error
}

// AuditRepository stores the committed-action trail.
type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	ListByProduct(ctx context.Context, productID string) ([]domain.AuditEntry, error)
}

type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Debug(ctx context.Context, msg string, args ...any)
}
