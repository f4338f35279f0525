package engine_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockvel-tracker/internal/core/domain"
	"stockvel-tracker/internal/core/engine"
)

func loanWithStatus(id uint, status domain.LoanStatus) domain.Loan {
	return domain.Loan{
		ID:             id,
		MemberID:       1,
		Principal:      decimal.NewFromInt(3000),
		InterestRate:   decimal.NewFromInt(8),
		TermMonths:     6,
		TotalRepayment: decimal.NewFromInt(3240),
		AmountRepaid:   decimal.Zero,
		Status:         status,
	}
}

func TestAssessRisk_FourMissedNoLoans(t *testing.T) {
	a, err := engine.AssessRisk(engine.LedgerSummary{OutstandingMonths: 4}, nil)
	require.NoError(t, err)

	require.Len(t, a.Factors, 1)
	assert.Equal(t, domain.RiskFactorMissedContributions, a.Factors[0].Type)
	assert.Equal(t, domain.RiskHigh, a.Factors[0].Severity)
	assert.Equal(t, "4 missed contributions", a.Factors[0].Label)
	assert.Equal(t, domain.RiskHigh, a.Level)
}

func TestAssessRisk_Clean(t *testing.T) {
	a, err := engine.AssessRisk(engine.LedgerSummary{}, nil)
	require.NoError(t, err)

	assert.Empty(t, a.Factors)
	assert.Equal(t, domain.RiskLow, a.Level)
	assert.Equal(t, engine.NoRiskSummary, a.Summary)
}

func TestAssessRisk_Thresholds(t *testing.T) {
	tests := []struct {
		name   string
		missed int
		loans  []domain.Loan
		types  []domain.RiskFactorType
		level  domain.RiskLevel
	}{
		{
			name:   "two missed is below threshold",
			missed: 2,
			level:  domain.RiskLow,
		},
		{
			name:   "three missed is medium",
			missed: 3,
			types:  []domain.RiskFactorType{domain.RiskFactorMissedContributions},
			level:  domain.RiskMedium,
		},
		{
			name:  "one active loan is fine",
			loans: []domain.Loan{loanWithStatus(1, domain.LoanActive)},
			level: domain.RiskLow,
		},
		{
			name: "two active loans is medium",
			loans: []domain.Loan{
				loanWithStatus(1, domain.LoanActive),
				loanWithStatus(2, domain.LoanActive),
			},
			types: []domain.RiskFactorType{domain.RiskFactorMultipleLoans},
			level: domain.RiskMedium,
		},
		{
			name: "pending and repaid loans do not count as active",
			loans: []domain.Loan{
				loanWithStatus(1, domain.LoanActive),
				loanWithStatus(2, domain.LoanPending),
				loanWithStatus(3, domain.LoanRepaid),
			},
			level: domain.RiskLow,
		},
		{
			name:  "overdue loan is high",
			loans: []domain.Loan{loanWithStatus(1, domain.LoanOverdue)},
			types: []domain.RiskFactorType{domain.RiskFactorOverdue},
			level: domain.RiskHigh,
		},
		{
			name:   "factors co-occur in rule order",
			missed: 3,
			loans: []domain.Loan{
				loanWithStatus(1, domain.LoanActive),
				loanWithStatus(2, domain.LoanActive),
				loanWithStatus(3, domain.LoanOverdue),
			},
			types: []domain.RiskFactorType{
				domain.RiskFactorMissedContributions,
				domain.RiskFactorMultipleLoans,
				domain.RiskFactorOverdue,
			},
			level: domain.RiskHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := engine.AssessRisk(engine.LedgerSummary{OutstandingMonths: tt.missed}, tt.loans)
			require.NoError(t, err)

			var got []domain.RiskFactorType
			for _, f := range a.Factors {
				got = append(got, f.Type)
			}
			assert.Equal(t, tt.types, got)
			assert.Equal(t, tt.level, a.Level)
		})
	}
}

func TestAssessRisk_OverRepaidLoan(t *testing.T) {
	loan := loanWithStatus(7, domain.LoanActive)
	loan.AmountRepaid = decimal.NewFromInt(4000)

	_, err := engine.AssessRisk(engine.LedgerSummary{}, []domain.Loan{loan})
	assert.ErrorIs(t, err, domain.ErrInconsistentLedger)
}

func TestReconcileRisk(t *testing.T) {
	member := domain.Member{ID: 3, StoredRiskLevel: domain.RiskLow}

	r := engine.ReconcileRisk(member, engine.RiskAssessment{Level: domain.RiskHigh})
	assert.True(t, r.Drifted)
	assert.Equal(t, domain.RiskLow, r.StoredRiskLevel)
	assert.Equal(t, domain.RiskHigh, r.ComputedRiskLevel)

	r = engine.ReconcileRisk(member, engine.RiskAssessment{Level: domain.RiskLow})
	assert.False(t, r.Drifted)
}
