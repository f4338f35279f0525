package engine

import (
	"fmt"

	"stockvel-tracker/internal/core/domain"
)

// Risk rule thresholds
const (
	MissedContributionsMedium = 3
	MissedContributionsHigh   = 4
	MultipleActiveLoans       = 2
	OverdueLoans              = 1
)

// NoRiskSummary describes a member with no triggered factor
const NoRiskSummary = "excellent payment history"

// RiskAssessment is a freshly computed risk signal. It is never persisted
// and never overwrites a member's stored level on its own.
type RiskAssessment struct {
	Factors []domain.RiskFactor `json:"factors"`
	Level   domain.RiskLevel    `json:"level"`
	Summary string              `json:"summary"`
}

// AssessRisk evaluates every rule independently and reports the factors in
// rule order. Missed contributions come from the ledger's outstanding months.
func AssessRisk(ledger LedgerSummary, loans []domain.Loan) (RiskAssessment, error) {
	var active, overdue int
	for _, l := range loans {
		if err := checkRepaid(l); err != nil {
			return RiskAssessment{}, err
		}
		switch l.Status {
		case domain.LoanActive:
			active++
		case domain.LoanOverdue:
			overdue++
		}
	}

	factors := make([]domain.RiskFactor, 0, 3)

	if missed := ledger.OutstandingMonths; missed >= MissedContributionsMedium {
		severity := domain.RiskMedium
		if missed >= MissedContributionsHigh {
			severity = domain.RiskHigh
		}
		factors = append(factors, domain.RiskFactor{
			Type:     domain.RiskFactorMissedContributions,
			Label:    fmt.Sprintf("%d missed contributions", missed),
			Severity: severity,
		})
	}

	if active >= MultipleActiveLoans {
		factors = append(factors, domain.RiskFactor{
			Type:     domain.RiskFactorMultipleLoans,
			Label:    fmt.Sprintf("%d active loans", active),
			Severity: domain.RiskMedium,
		})
	}

	if overdue >= OverdueLoans {
		factors = append(factors, domain.RiskFactor{
			Type:     domain.RiskFactorOverdue,
			Label:    fmt.Sprintf("%d overdue loan(s)", overdue),
			Severity: domain.RiskHigh,
		})
	}

	level := domain.RiskLow
	for _, f := range factors {
		level = domain.MaxRiskLevel(level, f.Severity)
	}

	summary := NoRiskSummary
	if len(factors) > 0 {
		summary = fmt.Sprintf("%d risk factor(s)", len(factors))
	}

	return RiskAssessment{Factors: factors, Level: level, Summary: summary}, nil
}

// RiskReconciliation compares a member's stored classification with a computed one
type RiskReconciliation struct {
	MemberID          uint             `json:"member_id"`
	StoredRiskLevel   domain.RiskLevel `json:"stored_risk_level"`
	ComputedRiskLevel domain.RiskLevel `json:"computed_risk_level"`
	Drifted           bool             `json:"drifted"`
}

// ReconcileRisk reports whether the stored level differs from the assessment.
// Applying the computed level is left to an explicit, audited action.
func ReconcileRisk(member domain.Member, assessment RiskAssessment) RiskReconciliation {
	return RiskReconciliation{
		MemberID:          member.ID,
		StoredRiskLevel:   member.StoredRiskLevel,
		ComputedRiskLevel: assessment.Level,
		Drifted:           member.StoredRiskLevel != assessment.Level,
	}
}
