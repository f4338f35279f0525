package services

import (
	"context"
	"io"
	"time"

	"stockvel-tracker/internal/adapters/persistence/models"
	"stockvel-tracker/internal/core/domain"
)

// Note: NotificationService is the production Notifier (notification_service.go)
// Note: CloudinaryAvatarStore is the production AvatarStore (avatar_service.go)

// Notifier receives member-facing lifecycle events. Implementations must not
// fail the calling operation.
type Notifier interface {
	NotifyLoanApproved(ctx context.Context, loan *models.Loan)
	NotifyLoanRejected(ctx context.Context, loan *models.Loan)
	NotifyLoanRepaid(ctx context.Context, loan *models.Loan)
	NotifyLoanOverdue(ctx context.Context, loan *models.Loan)
	NotifyPeriodOpened(ctx context.Context, period domain.Period, rows []*models.Contribution)
	NotifyRiskChanged(ctx context.Context, memberID uint, from, to domain.RiskLevel)
}

// AvatarStore keeps member profile images outside the database
type AvatarStore interface {
	Upload(ctx context.Context, file io.Reader, memberNo string) (url, publicID string, err error)
	Delete(ctx context.Context, publicID string) error
}

// Clock returns the current instant. Services default to time.Now.
type Clock func() time.Time

func defaultClock() time.Time {
	return time.Now().UTC()
}
