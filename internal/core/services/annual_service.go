package services

import (
	"context"

	"stockvel-tracker/internal/adapters/persistence/models"
	"stockvel-tracker/internal/adapters/persistence/repositories"
	"stockvel-tracker/internal/config"
	"stockvel-tracker/internal/core/domain"
	"stockvel-tracker/internal/core/engine"
	"stockvel-tracker/internal/pkg/metrics"

	"github.com/shopspring/decimal"
)

// AnnualService builds the year-end summary and payout allocation
type AnnualService struct {
	memberRepo       repositories.MemberRepository
	contributionRepo repositories.ContributionRepository
	loanRepo         repositories.LoanRepository
	policy           config.StockvelConfig
	now              Clock
}

// NewAnnualService creates a new annual service
func NewAnnualService(
	memberRepo repositories.MemberRepository,
	contributionRepo repositories.ContributionRepository,
	loanRepo repositories.LoanRepository,
	policy config.StockvelConfig,
) *AnnualService {
	return &AnnualService{
		memberRepo:       memberRepo,
		contributionRepo: contributionRepo,
		loanRepo:         loanRepo,
		policy:           policy,
		now:              defaultClock,
	}
}

// AnnualMemberRow is one member's line of the annual summary
type AnnualMemberRow struct {
	MemberID          uint            `json:"member_id"`
	MemberNo          string          `json:"member_no"`
	FullName          string          `json:"full_name"`
	PaidMonths        int             `json:"paid_months"`
	OutstandingMonths int             `json:"outstanding_months"`
	TotalContributed  decimal.Decimal `json:"total_contributed"`
	ExpectedTotal     decimal.Decimal `json:"expected_total"`
	CompletionPercent decimal.Decimal `json:"completion_percent"`
	PayoutShare       decimal.Decimal `json:"payout_share"`
}

// AnnualSummary is the fiscal year report with payout shares
type AnnualSummary struct {
	Year                 int               `json:"year"`
	MonthlyContribution  decimal.Decimal   `json:"monthly_contribution"`
	TotalCollected       decimal.Decimal   `json:"total_collected"`
	TotalExpected        decimal.Decimal   `json:"total_expected"`
	CollectionRate       decimal.Decimal   `json:"collection_rate"`
	OutstandingPrincipal decimal.Decimal   `json:"outstanding_principal"`
	DistributablePool    decimal.Decimal   `json:"distributable_pool"`
	Members              []AnnualMemberRow `json:"members"`
}

// Summary reports every member's year and allocates the distributable pool.
// The pool is the year's collected contributions less principal still out on loan.
func (s *AnnualService) Summary(ctx context.Context, year int) (*AnnualSummary, error) {
	members, err := s.memberRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	contributions, err := s.contributionRepo.ListByYear(ctx, year)
	if err != nil {
		return nil, err
	}
	loans, err := s.loanRepo.ListByStatuses(ctx, domain.LoanActive, domain.LoanOverdue)
	if err != nil {
		return nil, err
	}

	rowsByMember := make(map[uint][]*models.Contribution, len(members))
	for _, c := range contributions {
		rowsByMember[c.MemberID] = append(rowsByMember[c.MemberID], c)
	}

	summary := &AnnualSummary{
		Year:                year,
		MonthlyContribution: s.policy.MonthlyContribution,
		TotalCollected:      decimal.Zero,
		TotalExpected:       decimal.Zero,
		CollectionRate:      decimal.Zero,
		Members:             make([]AnnualMemberRow, 0, len(members)),
	}
	totals := make([]engine.MemberTotal, 0, len(members))
	asOf := s.now()

	for _, m := range members {
		ledger, _, err := buildLedger(s.policy, m, year, rowsByMember[m.ID], asOf)
		if err != nil {
			return nil, err
		}

		summary.TotalCollected = summary.TotalCollected.Add(ledger.TotalContributed)
		summary.TotalExpected = summary.TotalExpected.Add(ledger.ExpectedTotal)
		totals = append(totals, engine.MemberTotal{MemberID: m.ID, TotalContributed: ledger.TotalContributed})
		summary.Members = append(summary.Members, AnnualMemberRow{
			MemberID:          m.ID,
			MemberNo:          m.MemberNo,
			FullName:          m.ToDomain().FullName(),
			PaidMonths:        ledger.PaidMonths,
			OutstandingMonths: ledger.OutstandingMonths,
			TotalContributed:  ledger.TotalContributed,
			ExpectedTotal:     ledger.ExpectedTotal,
			CompletionPercent: ledger.CompletionPercent.Round(engine.CurrencyPlaces),
		})
	}
	if summary.TotalExpected.IsPositive() {
		summary.CollectionRate = summary.TotalCollected.Div(summary.TotalExpected).Mul(decimal.NewFromInt(100)).Round(engine.CurrencyPlaces)
	}

	pool, err := engine.DistributablePool(summary.TotalCollected, models.LoansToDomain(loans))
	metrics.Observe("distributable_pool", err)
	if err != nil {
		return nil, err
	}
	summary.OutstandingPrincipal = summary.TotalCollected.Sub(pool).Round(engine.CurrencyPlaces)

	allocation, err := engine.AllocatePayouts(totals, pool)
	metrics.Observe("allocate_payouts", err)
	if err != nil {
		return nil, err
	}
	summary.DistributablePool = allocation.DistributablePool
	for i, share := range allocation.Shares {
		summary.Members[i].PayoutShare = share.Share
	}

	return summary, nil
}
