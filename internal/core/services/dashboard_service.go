package services

import (
	"context"
	"errors"
	"time"

	"stockvel-tracker/internal/adapters/persistence/models"
	"stockvel-tracker/internal/config"
	"stockvel-tracker/internal/core/domain"
	"stockvel-tracker/internal/core/engine"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DashboardService builds the admin and member dashboards
type DashboardService struct {
	db     *gorm.DB
	risk   *RiskService
	policy config.StockvelConfig
	now    Clock
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(db *gorm.DB, risk *RiskService, policy config.StockvelConfig) *DashboardService {
	return &DashboardService{db: db, risk: risk, policy: policy, now: defaultClock}
}

// ============================================================
// Admin Dashboard
// ============================================================

// StockvelStats represents the group-wide figures on the admin dashboard
type StockvelStats struct {
	TotalSavings       decimal.Decimal `json:"total_savings"`
	MemberCount        int64           `json:"member_count"`
	PendingMembers     int64           `json:"pending_members"`
	ActiveLoans        int64           `json:"active_loans"`
	OverdueLoans       int64           `json:"overdue_loans"`
	PendingLoans       int64           `json:"pending_loans"`
	TotalLoanValue     decimal.Decimal `json:"total_loan_value"`
	MonthlyTarget      decimal.Decimal `json:"monthly_target"`
	CollectedThisMonth decimal.Decimal `json:"collected_this_month"`
	CollectionRate     decimal.Decimal `json:"collection_rate"`
	CurrentPeriod      string          `json:"current_period"`

	// RiskDistribution is the percentage of members at each computed level
	RiskDistribution map[domain.RiskLevel]decimal.Decimal `json:"risk_distribution"`

	RecentLoans []*models.LoanResponse `json:"recent_loans"`
}

// GetAdminDashboard returns group-wide statistics
func (s *DashboardService) GetAdminDashboard(ctx context.Context) (*StockvelStats, error) {
	db := s.db.WithContext(ctx)
	period := domain.NewPeriod(s.now())
	stats := &StockvelStats{CurrentPeriod: period.String()}

	var err error
	if stats.TotalSavings, err = s.sum(db.Table("contributions").Where("paid = ?", true), "amount"); err != nil {
		return nil, err
	}

	db.Table("members").Where("status = ?", domain.MembershipActive).Count(&stats.MemberCount)
	db.Table("members").Where("status = ?", domain.MembershipPending).Count(&stats.PendingMembers)
	db.Table("loans").Where("status = ?", domain.LoanActive).Count(&stats.ActiveLoans)
	db.Table("loans").Where("status = ?", domain.LoanOverdue).Count(&stats.OverdueLoans)
	db.Table("loans").Where("status = ?", domain.LoanPending).Count(&stats.PendingLoans)

	outstanding := db.Table("loans").Where("status IN ?", []string{string(domain.LoanActive), string(domain.LoanOverdue)})
	if stats.TotalLoanValue, err = s.sum(outstanding, "principal"); err != nil {
		return nil, err
	}

	thisMonth := db.Table("contributions").Where("period = ? AND paid = ?", period.String(), true)
	if stats.CollectedThisMonth, err = s.sum(thisMonth, "amount"); err != nil {
		return nil, err
	}

	stats.MonthlyTarget = s.policy.MonthlyContribution.Mul(decimal.NewFromInt(stats.MemberCount))
	stats.CollectionRate = percentOf(stats.CollectedThisMonth, stats.MonthlyTarget)

	snapshot, err := s.risk.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	stats.RiskDistribution = make(map[domain.RiskLevel]decimal.Decimal, len(snapshot.Distribution))
	for level, count := range snapshot.Distribution {
		stats.RiskDistribution[level] = percentOf(decimal.NewFromInt(int64(count)), decimal.NewFromInt(int64(snapshot.Members)))
	}

	var recent []*models.Loan
	if err := db.Preload("Member").Order("request_date DESC").Limit(10).Find(&recent).Error; err != nil {
		return nil, err
	}
	stats.RecentLoans = make([]*models.LoanResponse, len(recent))
	for i, l := range recent {
		stats.RecentLoans[i] = l.ToResponse()
	}

	return stats, nil
}

// ============================================================
// Member Dashboard
// ============================================================

// MemberDashboardData represents a member's own dashboard
type MemberDashboardData struct {
	Member              *models.MemberResponse `json:"member"`
	Year                int                    `json:"year"`
	Ledger              engine.LedgerSummary   `json:"ledger"`
	CurrentPeriodPaid   bool                   `json:"current_period_paid"`
	Loans               []*models.LoanResponse `json:"loans"`
	OutstandingBalance  decimal.Decimal        `json:"outstanding_balance"`
	UnreadNotifications int64                  `json:"unread_notifications"`
	LastContributionAt  *time.Time             `json:"last_contribution_at"`
}

// GetMemberDashboard returns a member's contribution and loan position
func (s *DashboardService) GetMemberDashboard(ctx context.Context, memberID uint) (*MemberDashboardData, error) {
	db := s.db.WithContext(ctx)
	now := s.now()

	var member models.Member
	if err := db.First(&member, memberID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}

	var rows []*models.Contribution
	if err := db.Where("member_id = ? AND year = ?", memberID, now.Year()).Order("period").Find(&rows).Error; err != nil {
		return nil, err
	}
	ledger, _, err := buildLedger(s.policy, &member, now.Year(), rows, now)
	if err != nil {
		return nil, err
	}

	data := &MemberDashboardData{
		Member:             member.ToResponse(),
		Year:               now.Year(),
		Ledger:             ledger,
		OutstandingBalance: decimal.Zero,
	}
	current := domain.NewPeriod(now).String()
	for _, c := range rows {
		if c.Period == current {
			data.CurrentPeriodPaid = c.Paid
		}
		if c.Paid && c.PaidDate != nil && (data.LastContributionAt == nil || c.PaidDate.After(*data.LastContributionAt)) {
			data.LastContributionAt = c.PaidDate
		}
	}

	var loans []*models.Loan
	if err := db.Where("member_id = ?", memberID).Order("request_date DESC").Find(&loans).Error; err != nil {
		return nil, err
	}
	data.Loans = make([]*models.LoanResponse, len(loans))
	for i, l := range loans {
		data.Loans[i] = l.ToResponse()
		if domain.LoanStatus(l.Status).OwesPool() {
			data.OutstandingBalance = data.OutstandingBalance.Add(engine.PayableTotal(l.ToDomain()).Sub(l.AmountRepaid))
		}
	}

	db.Table("notifications").Where("member_id = ? AND is_read = ?", memberID, false).Count(&data.UnreadNotifications)

	return data, nil
}

// sum totals a decimal column over the query, treating no rows as zero
func (s *DashboardService) sum(query *gorm.DB, column string) (decimal.Decimal, error) {
	var row struct {
		Total decimal.NullDecimal
	}
	if err := query.Select("SUM(" + column + ") AS total").Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	if !row.Total.Valid {
		return decimal.Zero, nil
	}
	return row.Total.Decimal, nil
}

// percentOf returns part/whole as a percentage rounded to cents, zero when whole is zero
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(engine.CurrencyPlaces)
}
