package services

import (
	"context"
	"errors"
	"log"

	"stockvel-tracker/internal/adapters/persistence/models"
	"stockvel-tracker/internal/adapters/persistence/repositories"
	"stockvel-tracker/internal/config"
	"stockvel-tracker/internal/core/domain"
	"stockvel-tracker/internal/core/engine"
	"stockvel-tracker/internal/pkg/metrics"

	"gorm.io/gorm"
)

// RiskService computes member risk and reconciles it with the stored level
type RiskService struct {
	memberRepo       repositories.MemberRepository
	contributionRepo repositories.ContributionRepository
	loanRepo         repositories.LoanRepository
	notifier         Notifier
	policy           config.StockvelConfig
	now              Clock
}

// NewRiskService creates a new risk service
func NewRiskService(
	memberRepo repositories.MemberRepository,
	contributionRepo repositories.ContributionRepository,
	loanRepo repositories.LoanRepository,
	notifier Notifier,
	policy config.StockvelConfig,
) *RiskService {
	return &RiskService{
		memberRepo:       memberRepo,
		contributionRepo: contributionRepo,
		loanRepo:         loanRepo,
		notifier:         notifier,
		policy:           policy,
		now:              defaultClock,
	}
}

// MemberRisk is one row of the risk monitor
type MemberRisk struct {
	Member         *models.MemberResponse    `json:"member"`
	Ledger         engine.LedgerSummary      `json:"ledger"`
	Assessment     engine.RiskAssessment     `json:"assessment"`
	Reconciliation engine.RiskReconciliation `json:"reconciliation"`
}

// RiskResyncResult reports an admin resync. Change is nil when nothing drifted.
type RiskResyncResult struct {
	Reconciliation engine.RiskReconciliation `json:"reconciliation"`
	Change         *models.RiskLevelChange   `json:"change"`
}

// RiskSnapshot summarises drift across all members
type RiskSnapshot struct {
	Members      int                      `json:"members"`
	Drifted      int                      `json:"drifted"`
	Distribution map[domain.RiskLevel]int `json:"distribution"`
}

// Assess computes one member's risk for the current fiscal year
func (s *RiskService) Assess(ctx context.Context, memberID uint) (*MemberRisk, error) {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}

	year := s.now().Year()
	rows, err := s.contributionRepo.ListByMemberYear(ctx, member.ID, year)
	if err != nil {
		return nil, err
	}
	loans, err := s.loanRepo.ListByMember(ctx, member.ID)
	if err != nil {
		return nil, err
	}

	return s.assess(member, year, rows, loans)
}

// AssessAll computes risk for every member, in member order
func (s *RiskService) AssessAll(ctx context.Context) ([]*MemberRisk, error) {
	members, err := s.memberRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	year := s.now().Year()
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
	loansByMember := make(map[uint][]*models.Loan, len(members))
	for _, l := range loans {
		loansByMember[l.MemberID] = append(loansByMember[l.MemberID], l)
	}

	out := make([]*MemberRisk, 0, len(members))
	for _, m := range members {
		risk, err := s.assess(m, year, rowsByMember[m.ID], loansByMember[m.ID])
		if err != nil {
			return nil, err
		}
		out = append(out, risk)
	}
	return out, nil
}

func (s *RiskService) assess(member *models.Member, year int, rows []*models.Contribution, loans []*models.Loan) (*MemberRisk, error) {
	ledger, _, err := buildLedger(s.policy, member, year, rows, s.now())
	if err != nil {
		return nil, err
	}

	// only loans still out on the pool count toward risk
	owing := make([]*models.Loan, 0, len(loans))
	for _, l := range loans {
		if domain.LoanStatus(l.Status).OwesPool() {
			owing = append(owing, l)
		}
	}

	assessment, err := engine.AssessRisk(ledger, models.LoansToDomain(owing))
	metrics.Observe("assess_risk", err)
	if err != nil {
		return nil, err
	}

	return &MemberRisk{
		Member:         member.ToResponse(),
		Ledger:         ledger,
		Assessment:     assessment,
		Reconciliation: engine.ReconcileRisk(member.ToDomain(), assessment),
	}, nil
}

// Resync overwrites the member's stored level with the computed one and
// records who did it
func (s *RiskService) Resync(ctx context.Context, memberID, adminID uint, ipAddress string) (*RiskResyncResult, error) {
	risk, err := s.Assess(ctx, memberID)
	if err != nil {
		return nil, err
	}

	result := &RiskResyncResult{Reconciliation: risk.Reconciliation}
	if !risk.Reconciliation.Drifted {
		return result, nil
	}

	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}

	from := domain.RiskLevel(member.StoredRiskLevel)
	to := risk.Assessment.Level
	change := &models.RiskLevelChange{
		MemberID:  member.ID,
		FromLevel: string(from),
		ToLevel:   string(to),
		Factors:   risk.Assessment.Factors,
		ChangedBy: adminID,
		IPAddress: ipAddress,
	}
	member.StoredRiskLevel = string(to)
	if err := s.memberRepo.ResyncRiskLevel(ctx, member, change); err != nil {
		return nil, err
	}

	log.Printf("✅ Risk level resynced: member %s %s -> %s by user %d", member.MemberNo, from, to, adminID)
	s.notifier.NotifyRiskChanged(ctx, member.ID, from, to)

	result.Change = change
	return result, nil
}

// Snapshot assesses every member and publishes the drift count
func (s *RiskService) Snapshot(ctx context.Context) (*RiskSnapshot, error) {
	risks, err := s.AssessAll(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &RiskSnapshot{
		Members: len(risks),
		Distribution: map[domain.RiskLevel]int{
			domain.RiskLow:    0,
			domain.RiskMedium: 0,
			domain.RiskHigh:   0,
		},
	}
	for _, r := range risks {
		snapshot.Distribution[r.Assessment.Level]++
		if r.Reconciliation.Drifted {
			snapshot.Drifted++
		}
	}

	metrics.RiskDrift.Set(float64(snapshot.Drifted))
	return snapshot, nil
}
