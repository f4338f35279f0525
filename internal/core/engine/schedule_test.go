package engine_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockvel-tracker/internal/core/domain"
	"stockvel-tracker/internal/core/engine"
)

func TestBuildRepaymentSchedule(t *testing.T) {
	terms, err := engine.CalculateLoanTerms(dec("8000"), 12)
	require.NoError(t, err)

	firstDue := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	schedule, err := engine.BuildRepaymentSchedule(terms, firstDue)
	require.NoError(t, err)
	require.Len(t, schedule, 12)

	total := decimal.Zero
	for i, inst := range schedule {
		assert.Equal(t, i+1, inst.Sequence)
		assert.Equal(t, firstDue.AddDate(0, i, 0), inst.DueDate)
		total = total.Add(inst.Amount)
	}
	assert.Equal(t, "8960.00", total.StringFixed(2))
	assert.Equal(t, "746.67", schedule[0].Amount.StringFixed(2))
	// 11 x 746.67 = 8213.37, leaving 746.63
	assert.Equal(t, "746.63", schedule[11].Amount.StringFixed(2))
}

func TestBuildRepaymentSchedule_EvenSplit(t *testing.T) {
	terms, err := engine.CalculateLoanTerms(dec("3000"), 6)
	require.NoError(t, err)

	schedule, err := engine.BuildRepaymentSchedule(terms, time.Now())
	require.NoError(t, err)
	for _, inst := range schedule {
		assert.Equal(t, "540.00", inst.Amount.StringFixed(2))
	}
}

func TestBuildRepaymentSchedule_InvalidTerm(t *testing.T) {
	_, err := engine.BuildRepaymentSchedule(engine.LoanTerms{TermMonths: 0}, time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidTerm)
}

func activeLoan(t *testing.T) domain.Loan {
	t.Helper()
	terms, err := engine.CalculateLoanTerms(dec("3000"), 6)
	require.NoError(t, err)

	loan := domain.Loan{ID: 4, MemberID: 1, Status: domain.LoanActive, AmountRepaid: decimal.Zero}
	terms.ApplyTo(&loan)
	return loan
}

func TestRepaymentProgressFor(t *testing.T) {
	loan := activeLoan(t)
	loan.AmountRepaid = dec("1620")
	repayments := []domain.Repayment{
		{ID: 1, LoanID: 4, Amount: dec("540"), Sequence: 1},
		{ID: 2, LoanID: 4, Amount: dec("1080"), Sequence: 2},
	}

	p, err := engine.RepaymentProgressFor(loan, repayments)
	require.NoError(t, err)

	assert.True(t, p.Remaining.Equal(dec("1620")))
	assert.True(t, p.PercentRepaid.Equal(decimal.NewFromInt(50)), "percent %s", p.PercentRepaid)
	assert.Equal(t, 3, p.InstallmentsCovered)
	assert.Equal(t, 3, p.NextSequence)
}

func TestRepaymentProgressFor_NoRepayments(t *testing.T) {
	p, err := engine.RepaymentProgressFor(activeLoan(t), nil)
	require.NoError(t, err)

	assert.True(t, p.Remaining.Equal(dec("3240")))
	assert.True(t, p.PercentRepaid.IsZero())
	assert.Zero(t, p.InstallmentsCovered)
	assert.Equal(t, 1, p.NextSequence)
}

func TestRepaymentProgressFor_Inconsistent(t *testing.T) {
	loan := activeLoan(t)

	t.Run("sum mismatch", func(t *testing.T) {
		_, err := engine.RepaymentProgressFor(loan, []domain.Repayment{{ID: 1, LoanID: 4, Amount: dec("540"), Sequence: 1}})
		assert.ErrorIs(t, err, domain.ErrInconsistentLedger)
	})

	t.Run("foreign repayment", func(t *testing.T) {
		l := loan
		l.AmountRepaid = dec("540")
		_, err := engine.RepaymentProgressFor(l, []domain.Repayment{{ID: 1, LoanID: 99, Amount: dec("540"), Sequence: 1}})
		assert.ErrorIs(t, err, domain.ErrInconsistentLedger)
	})

	t.Run("over repaid", func(t *testing.T) {
		l := loan
		l.AmountRepaid = dec("4000")
		_, err := engine.RepaymentProgressFor(l, []domain.Repayment{{ID: 1, LoanID: 4, Amount: dec("4000"), Sequence: 1}})
		assert.ErrorIs(t, err, domain.ErrInconsistentLedger)
	})
}

func TestRepaymentProgressFor_SubCentTotal(t *testing.T) {
	terms, err := engine.CalculateLoanTerms(dec("1000.95"), 12)
	require.NoError(t, err)
	require.True(t, terms.TotalRepayment.Equal(dec("1081.026")))

	loan := domain.Loan{ID: 8, Status: domain.LoanActive}
	terms.ApplyTo(&loan)
	assert.Equal(t, "1081.03", engine.PayableTotal(loan).String())

	schedule, err := engine.BuildRepaymentSchedule(terms, time.Now())
	require.NoError(t, err)

	var repayments []domain.Repayment
	loan.AmountRepaid = decimal.Zero
	for _, inst := range schedule {
		repayments = append(repayments, domain.Repayment{LoanID: 8, Amount: inst.Amount, Sequence: inst.Sequence})
		loan.AmountRepaid = loan.AmountRepaid.Add(inst.Amount)
	}

	// paying the whole schedule settles the loan without tripping the ledger check
	p, err := engine.RepaymentProgressFor(loan, repayments)
	require.NoError(t, err)
	assert.True(t, p.Remaining.IsZero())
	assert.Equal(t, 12, p.InstallmentsCovered)

	owed, err := engine.OutstandingPrincipal(loan)
	require.NoError(t, err)
	assert.True(t, owed.IsZero(), "owed %s", owed)
}
