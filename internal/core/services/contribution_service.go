package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"stockvel-tracker/internal/adapters/persistence/models"
	"stockvel-tracker/internal/adapters/persistence/repositories"
	"stockvel-tracker/internal/config"
	"stockvel-tracker/internal/core/domain"
	"stockvel-tracker/internal/core/engine"
	"stockvel-tracker/internal/pkg/metrics"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Contribution service errors
var (
	ErrAlreadyPaid          = errors.New("contribution already paid")
	ErrPeriodNotOpen        = errors.New("period is not open yet")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrMemberNotActive      = errors.New("member is not active")
)

// ContributionService handles monthly contributions
type ContributionService struct {
	memberRepo       repositories.MemberRepository
	contributionRepo repositories.ContributionRepository
	notifier         Notifier
	policy           config.StockvelConfig
	now              Clock
}

// NewContributionService creates a new contribution service
func NewContributionService(
	memberRepo repositories.MemberRepository,
	contributionRepo repositories.ContributionRepository,
	notifier Notifier,
	policy config.StockvelConfig,
) *ContributionService {
	return &ContributionService{
		memberRepo:       memberRepo,
		contributionRepo: contributionRepo,
		notifier:         notifier,
		policy:           policy,
		now:              defaultClock,
	}
}

// OpenPeriodResult reports what opening a period did
type OpenPeriodResult struct {
	Period   string `json:"period"`
	Created  int    `json:"created"`
	Existing int    `json:"existing"`
}

// RecordPaymentInput represents a contribution payment
type RecordPaymentInput struct {
	MemberID      uint             `json:"member_id"`
	Period        string           `json:"period"`
	Amount        *decimal.Decimal `json:"amount"`
	PaymentMethod string           `json:"payment_method"`
	PaidDate      *time.Time       `json:"paid_date"`
}

// MemberYearSummary is a member's contribution position for a fiscal year
type MemberYearSummary struct {
	MemberID          uint                   `json:"member_id"`
	Year              int                    `json:"year"`
	PeriodsApplicable int                    `json:"periods_applicable"`
	Ledger            engine.LedgerSummary   `json:"ledger"`
	Contributions     []*models.Contribution `json:"contributions"`
}

// OpenPeriod creates an unpaid row for every active member enrolled by the
// period. Running it again for the same period creates nothing.
func (s *ContributionService) OpenPeriod(ctx context.Context, period domain.Period) (*OpenPeriodResult, error) {
	members, err := s.memberRepo.ListByStatus(ctx, domain.MembershipActive)
	if err != nil {
		return nil, err
	}

	result := &OpenPeriodResult{Period: period.String()}
	created := make([]*models.Contribution, 0, len(members))
	for _, m := range members {
		if period.Start().Before(domain.NewPeriod(m.JoinDate).Start()) {
			continue
		}

		row := models.NewContribution(m.ID, period, s.policy.MonthlyContribution)
		inserted, err := s.contributionRepo.CreateIfAbsent(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("open %s for member %s: %w", period, m.MemberNo, err)
		}
		if inserted {
			created = append(created, row)
		} else {
			result.Existing++
		}
	}
	result.Created = len(created)

	metrics.PeriodRowsOpened.Add(float64(result.Created))
	if len(created) > 0 {
		s.notifier.NotifyPeriodOpened(ctx, period, created)
	}

	log.Printf("✅ Period %s opened: %d created, %d already present", period, result.Created, result.Existing)
	return result, nil
}

// OpenCurrentPeriod opens the period containing the current instant
func (s *ContributionService) OpenCurrentPeriod(ctx context.Context) (*OpenPeriodResult, error) {
	return s.OpenPeriod(ctx, domain.NewPeriod(s.now()))
}

// RecordPayment marks a member's contribution for a period as paid. A row is
// created on the fly when the period is open but was never opened for the member.
func (s *ContributionService) RecordPayment(ctx context.Context, input *RecordPaymentInput, recordedBy uint) (*models.Contribution, error) {
	period, err := domain.ParsePeriod(input.Period)
	if err != nil {
		return nil, err
	}
	method := domain.PaymentMethod(input.PaymentMethod)
	if !method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	now := s.now()
	if !period.IsOpen(now) {
		return nil, ErrPeriodNotOpen
	}

	amount := s.policy.MonthlyContribution
	if input.Amount != nil && !input.Amount.Equal(amount) {
		return nil, fmt.Errorf("%w: a contribution is exactly %s", ErrInvalidAmount, amount.StringFixed(engine.CurrencyPlaces))
	}

	row, err := s.periodRow(ctx, input.MemberID, period)
	if err != nil {
		return nil, err
	}
	if row.Paid {
		return nil, ErrAlreadyPaid
	}

	paidDate := now
	if input.PaidDate != nil {
		paidDate = *input.PaidDate
	}

	row.Amount = amount
	row.Paid = true
	row.PaidDate = &paidDate
	row.PaymentMethod = string(method)
	row.RecordedBy = &recordedBy
	if err := s.contributionRepo.Update(ctx, row); err != nil {
		return nil, err
	}

	metrics.ContributionsRecorded.WithLabelValues(string(method)).Inc()
	log.Printf("✅ Contribution recorded: member %d period %s amount %s (%s)", row.MemberID, row.Period, row.Amount.StringFixed(2), method)
	return row, nil
}

// periodRow loads the member's row for an open period, creating it if missing
func (s *ContributionService) periodRow(ctx context.Context, memberID uint, period domain.Period) (*models.Contribution, error) {
	row, err := s.contributionRepo.GetByMemberPeriod(ctx, memberID, period.String())
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	if member.Status != string(domain.MembershipActive) {
		return nil, ErrMemberNotActive
	}

	if _, err := s.contributionRepo.CreateIfAbsent(ctx, models.NewContribution(member.ID, period, s.policy.MonthlyContribution)); err != nil {
		return nil, err
	}
	return s.contributionRepo.GetByMemberPeriod(ctx, memberID, period.String())
}

// ListMemberYear lists a member's contributions for a year
func (s *ContributionService) ListMemberYear(ctx context.Context, memberID uint, year int) ([]*models.Contribution, error) {
	return s.contributionRepo.ListByMemberYear(ctx, memberID, year)
}

// ListPeriod lists every member's contribution for one period
func (s *ContributionService) ListPeriod(ctx context.Context, period string) ([]*models.Contribution, error) {
	p, err := domain.ParsePeriod(period)
	if err != nil {
		return nil, err
	}
	return s.contributionRepo.ListByPeriod(ctx, p.String())
}

// MemberYearSummary aggregates a member's contributions for a year
func (s *ContributionService) MemberYearSummary(ctx context.Context, memberID uint, year int) (*MemberYearSummary, error) {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}

	rows, err := s.contributionRepo.ListByMemberYear(ctx, memberID, year)
	if err != nil {
		return nil, err
	}

	ledger, periods, err := buildLedger(s.policy, member, year, rows, s.now())
	if err != nil {
		return nil, err
	}

	return &MemberYearSummary{
		MemberID:          memberID,
		Year:              year,
		PeriodsApplicable: periods,
		Ledger:            ledger,
		Contributions:     rows,
	}, nil
}

// buildLedger aggregates a member's year under the group's proration policy
func buildLedger(policy config.StockvelConfig, member *models.Member, year int, rows []*models.Contribution, asOf time.Time) (engine.LedgerSummary, int, error) {
	records, err := models.ContributionsToDomain(rows)
	if err != nil {
		return engine.LedgerSummary{}, 0, fmt.Errorf("%w: %v", domain.ErrInconsistentLedger, err)
	}

	periods := engine.FullYearPeriods
	if policy.ProrateLateJoiners {
		periods = engine.ApplicablePeriods(member.JoinDate, year)
	}

	ledger, err := engine.AggregateContributions(records, engine.LedgerOptions{
		MonthlyAmount:     policy.MonthlyContribution,
		PeriodsApplicable: periods,
		AsOf:              asOf,
	})
	metrics.Observe("aggregate_contributions", err)
	if err != nil {
		return engine.LedgerSummary{}, 0, err
	}
	return ledger, periods, nil
}
