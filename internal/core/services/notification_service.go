package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"stockvel-tracker/internal/adapters/persistence/models"
	"stockvel-tracker/internal/adapters/persistence/repositories"
	"stockvel-tracker/internal/core/domain"
	"stockvel-tracker/internal/pkg/pagination"

	"gorm.io/gorm"
)

// ErrNotificationNotFound is returned when marking a missing or foreign notification
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService writes in-app notifications and pushes them to open
// streams when a hub is attached.
type NotificationService struct {
	repo           repositories.NotificationRepository
	hub            *NotificationHub
	currencySymbol string
}

// NewNotificationService creates a new notification service
func NewNotificationService(repo repositories.NotificationRepository, currencySymbol string) *NotificationService {
	return &NotificationService{repo: repo, currencySymbol: currencySymbol}
}

// ListNotificationsOutput represents a page of notifications
type ListNotificationsOutput struct {
	Notifications []*models.Notification `json:"notifications"`
	Total         int64                  `json:"total"`
	Page          int                    `json:"page"`
	Limit         int                    `json:"limit"`
}

// WithHub attaches a hub for live delivery
func (s *NotificationService) WithHub(hub *NotificationHub) *NotificationService {
	s.hub = hub
	return s
}

// Hub returns the attached hub, or nil
func (s *NotificationService) Hub() *NotificationHub {
	return s.hub
}

// List returns a member's notifications, newest first
func (s *NotificationService) List(ctx context.Context, memberID uint, unreadOnly bool, page, limit int) (*ListNotificationsOutput, error) {
	page, limit = pagination.Normalize(page, limit)

	rows, total, err := s.repo.ListByMember(ctx, memberID, unreadOnly, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	return &ListNotificationsOutput{
		Notifications: rows,
		Total:         total,
		Page:          page,
		Limit:         limit,
	}, nil
}

// MarkRead marks one notification as read
func (s *NotificationService) MarkRead(ctx context.Context, id, memberID uint) error {
	if err := s.repo.MarkRead(ctx, id, memberID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}
	return nil
}

// MarkAllRead marks every unread notification of the member as read
func (s *NotificationService) MarkAllRead(ctx context.Context, memberID uint) (int64, error) {
	return s.repo.MarkAllRead(ctx, memberID)
}

// NotifyLoanApproved tells the borrower their loan was approved
func (s *NotificationService) NotifyLoanApproved(ctx context.Context, loan *models.Loan) {
	s.send(ctx, &models.Notification{
		MemberID: loan.MemberID,
		Type:     models.NotifyLoanApproved,
		Title:    "Loan approved",
		Message: fmt.Sprintf("Your loan #%d of %s over %d months was approved. Monthly installment: %s.",
			loan.ID, s.money(loan.Principal.StringFixed(2)), loan.TermMonths, s.money(loan.MonthlyInstallment.StringFixed(2))),
	})
}

// NotifyLoanRejected tells the borrower their loan was rejected
func (s *NotificationService) NotifyLoanRejected(ctx context.Context, loan *models.Loan) {
	msg := fmt.Sprintf("Your loan request #%d of %s was rejected.", loan.ID, s.money(loan.Principal.StringFixed(2)))
	if loan.RejectionReason != "" {
		msg += " Reason: " + loan.RejectionReason
	}
	s.send(ctx, &models.Notification{
		MemberID: loan.MemberID,
		Type:     models.NotifyLoanRejected,
		Title:    "Loan rejected",
		Message:  msg,
	})
}

// NotifyLoanRepaid tells the borrower their loan is fully repaid
func (s *NotificationService) NotifyLoanRepaid(ctx context.Context, loan *models.Loan) {
	s.send(ctx, &models.Notification{
		MemberID: loan.MemberID,
		Type:     models.NotifyLoanRepaid,
		Title:    "Loan repaid",
		Message:  fmt.Sprintf("Loan #%d is fully repaid. Thank you!", loan.ID),
	})
}

// NotifyLoanOverdue warns the borrower their loan is overdue
func (s *NotificationService) NotifyLoanOverdue(ctx context.Context, loan *models.Loan) {
	s.send(ctx, &models.Notification{
		MemberID: loan.MemberID,
		Type:     models.NotifyLoanOverdue,
		Title:    "Loan overdue",
		Message:  fmt.Sprintf("Loan #%d is overdue. Please contact the treasurer.", loan.ID),
	})
}

// NotifyPeriodOpened reminds members that a new contribution is due
func (s *NotificationService) NotifyPeriodOpened(ctx context.Context, period domain.Period, rows []*models.Contribution) {
	notifications := make([]*models.Notification, 0, len(rows))
	for _, c := range rows {
		notifications = append(notifications, &models.Notification{
			MemberID: c.MemberID,
			Type:     models.NotifyPeriodOpened,
			Title:    "Contribution due",
			Message:  fmt.Sprintf("Your %s contribution of %s is now due.", period, s.money(c.Amount.StringFixed(2))),
		})
	}
	if err := s.repo.Create(ctx, notifications...); err != nil {
		log.Printf("⚠️ Failed to create period notifications for %s: %v", period, err)
		return
	}
	if s.hub != nil {
		for _, n := range notifications {
			s.hub.Publish(n)
		}
	}
}

// NotifyRiskChanged tells a member their stored risk level was updated
func (s *NotificationService) NotifyRiskChanged(ctx context.Context, memberID uint, from, to domain.RiskLevel) {
	s.send(ctx, &models.Notification{
		MemberID: memberID,
		Type:     models.NotifyRiskChanged,
		Title:    "Risk level updated",
		Message:  fmt.Sprintf("Your risk level changed from %s to %s.", from, to),
	})
}

// send stores one notification. Failures are logged, never returned.
func (s *NotificationService) send(ctx context.Context, n *models.Notification) {
	if err := s.repo.Create(ctx, n); err != nil {
		log.Printf("⚠️ Failed to create %s notification for member %d: %v", n.Type, n.MemberID, err)
		return
	}
	if s.hub != nil {
		s.hub.Publish(n)
	}
}

func (s *NotificationService) money(amount string) string {
	return s.currencySymbol + amount
}
