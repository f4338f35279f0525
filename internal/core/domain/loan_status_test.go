package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stockvel-tracker/internal/core/domain"
)

func TestLoanStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to domain.LoanStatus
		ok       bool
	}{
		{domain.LoanPending, domain.LoanApproved, true},
		{domain.LoanPending, domain.LoanRejected, true},
		{domain.LoanPending, domain.LoanActive, false},
		{domain.LoanApproved, domain.LoanActive, true},
		{domain.LoanApproved, domain.LoanRejected, false},
		{domain.LoanActive, domain.LoanOverdue, true},
		{domain.LoanActive, domain.LoanRepaid, true},
		{domain.LoanOverdue, domain.LoanActive, true},
		{domain.LoanOverdue, domain.LoanRepaid, true},
		{domain.LoanRepaid, domain.LoanActive, false},
		{domain.LoanRejected, domain.LoanPending, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestLoanStatus_Terminal(t *testing.T) {
	assert.True(t, domain.LoanRepaid.IsTerminal())
	assert.True(t, domain.LoanRejected.IsTerminal())
	assert.False(t, domain.LoanPending.IsTerminal())
	assert.False(t, domain.LoanOverdue.IsTerminal())
}

func TestLoanStatus_OwesPool(t *testing.T) {
	assert.True(t, domain.LoanActive.OwesPool())
	assert.True(t, domain.LoanOverdue.OwesPool())
	assert.False(t, domain.LoanApproved.OwesPool())
	assert.False(t, domain.LoanRepaid.OwesPool())
	assert.False(t, domain.LoanPending.OwesPool())
}

func TestRiskLevel_Max(t *testing.T) {
	assert.Equal(t, domain.RiskHigh, domain.MaxRiskLevel(domain.RiskMedium, domain.RiskHigh))
	assert.Equal(t, domain.RiskMedium, domain.MaxRiskLevel(domain.RiskMedium, domain.RiskLow))
	assert.False(t, domain.RiskLevel("critical").Valid())
}
