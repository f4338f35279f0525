package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"stockvel-tracker/internal/adapters/persistence/models"
	"stockvel-tracker/internal/config"
	"stockvel-tracker/internal/core/domain"
	"stockvel-tracker/internal/pkg/pagination"
)

type fakeNotificationRepo struct {
	rows      []*models.Notification
	createErr error
}

func (r *fakeNotificationRepo) Create(_ context.Context, notifications ...*models.Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, n := range notifications {
		n.ID = uint(len(r.rows) + 1)
		r.rows = append(r.rows, n)
	}
	return nil
}

func (r *fakeNotificationRepo) ListByMember(_ context.Context, memberID uint, unreadOnly bool, offset, limit int) ([]*models.Notification, int64, error) {
	var out []*models.Notification
	for i := len(r.rows) - 1; i >= 0; i-- {
		n := r.rows[i]
		if n.MemberID == memberID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	if end := offset + limit; end < len(out) {
		out = out[:end]
	}
	return out[offset:], total, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id, memberID uint) error {
	for _, n := range r.rows {
		if n.ID == id && n.MemberID == memberID {
			n.IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, memberID uint) (int64, error) {
	var n int64
	for _, row := range r.rows {
		if row.MemberID == memberID && !row.IsRead {
			row.IsRead = true
			n++
		}
	}
	return n, nil
}

func TestNotificationService_LoanMessages(t *testing.T) {
	ctx := context.Background()
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, "E")

	loan := &models.Loan{
		ID:                 7,
		MemberID:           3,
		Principal:          dec("1000"),
		TermMonths:         3,
		MonthlyInstallment: dec("350"),
		RejectionReason:    "insufficient savings",
	}
	svc.NotifyLoanApproved(ctx, loan)
	svc.NotifyLoanRejected(ctx, loan)

	require.Len(t, repo.rows, 2)
	assert.Equal(t, models.NotifyLoanApproved, repo.rows[0].Type)
	assert.Contains(t, repo.rows[0].Message, "E1000.00")
	assert.Contains(t, repo.rows[0].Message, "E350.00")
	assert.Contains(t, repo.rows[1].Message, "Reason: insufficient savings")
	assert.Equal(t, uint(3), repo.rows[1].MemberID)
}

func TestNotificationService_PeriodOpenedBatch(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, "R")
	period, err := domain.ParsePeriod("2024-05")
	require.NoError(t, err)

	svc.NotifyPeriodOpened(context.Background(), period, []*models.Contribution{
		models.NewContribution(1, period, dec("500")),
		models.NewContribution(2, period, dec("500")),
	})

	require.Len(t, repo.rows, 2)
	assert.Equal(t, "Your 2024-05 contribution of R500.00 is now due.", repo.rows[1].Message)
}

func TestNotificationService_FailuresAreSwallowed(t *testing.T) {
	repo := &fakeNotificationRepo{createErr: errors.New("db down")}
	svc := NewNotificationService(repo, "E")

	assert.NotPanics(t, func() {
		svc.NotifyRiskChanged(context.Background(), 1, domain.RiskLow, domain.RiskHigh)
	})
	assert.Empty(t, repo.rows)
}

func TestNotificationService_ReadState(t *testing.T) {
	ctx := context.Background()
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, "E")
	for i := 0; i < 3; i++ {
		svc.NotifyRiskChanged(ctx, 1, domain.RiskLow, domain.RiskMedium)
	}
	svc.NotifyRiskChanged(ctx, 2, domain.RiskLow, domain.RiskMedium)

	require.NoError(t, svc.MarkRead(ctx, 1, 1))
	assert.ErrorIs(t, svc.MarkRead(ctx, 4, 1), ErrNotificationNotFound)

	unread, err := svc.List(ctx, 1, true, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread.Total)
	assert.Equal(t, 1, unread.Page)
	assert.Equal(t, pagination.DefaultLimit, unread.Limit)

	n, err := svc.MarkAllRead(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestNewAvatarStoreWithoutCredentials(t *testing.T) {
	store, err := NewAvatarStore(config.CloudinaryConfig{Folder: "avatars"})
	require.NoError(t, err)

	_, _, err = store.Upload(context.Background(), nil, "M001")
	assert.ErrorIs(t, err, ErrAvatarStorageDisabled)
	assert.NoError(t, store.Delete(context.Background(), "avatars/M001"))
}
