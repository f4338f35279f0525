package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockvel-tracker/internal/adapters/persistence/models"
	"stockvel-tracker/internal/core/domain"
)

type loanFixture struct {
	svc      *LoanService
	loans    *fakeLoanRepo
	members  *fakeMemberRepo
	notifier *fakeNotifier
	member   *models.Member
	now      time.Time
}

func newLoanFixture() *loanFixture {
	f := &loanFixture{
		loans:    newFakeLoanRepo(),
		members:  newFakeMemberRepo(),
		notifier: &fakeNotifier{},
		now:      date(2024, 3, 15),
	}
	f.svc = NewLoanService(f.loans, f.members, f.notifier)
	f.svc.now = fixedClock(f.now)
	f.member = f.members.add("M001", "Thandi", date(2023, 1, 1), domain.MembershipActive)
	return f
}

// activeLoan requests, approves and disburses a loan
func (f *loanFixture) activeLoan(t *testing.T, principal string, term int) *models.Loan {
	t.Helper()
	ctx := context.Background()

	loan, err := f.svc.Request(ctx, &RequestLoanInput{MemberID: f.member.ID, Principal: dec(principal), TermMonths: term})
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, loan.ID, 100)
	require.NoError(t, err)
	loan, err = f.svc.Activate(ctx, loan.ID)
	require.NoError(t, err)
	return loan
}

func (f *loanFixture) repay(t *testing.T, loanID uint, amount *decimal.Decimal) (*models.Loan, *models.Repayment) {
	t.Helper()
	loan, rep, err := f.svc.RecordRepayment(context.Background(), loanID, &RecordRepaymentInput{
		Amount:        amount,
		PaymentMethod: string(domain.PaymentEWallet),
	}, 100)
	require.NoError(t, err)
	return loan, rep
}

func TestLoanService_Preview(t *testing.T) {
	f := newLoanFixture()

	preview, err := f.svc.Preview(dec("3000"), 6)
	require.NoError(t, err)
	assert.True(t, preview.Terms.InterestRate.Equal(dec("8")))
	assert.True(t, preview.Terms.TotalRepayment.Equal(dec("3240")))
	assert.True(t, preview.Terms.MonthlyInstallment.Equal(dec("540")))
	require.Len(t, preview.Schedule, 6)
	assert.Equal(t, date(2024, 4, 15), preview.Schedule[0].DueDate)
	assert.Equal(t, date(2024, 9, 15), preview.Schedule[5].DueDate)

	_, err = f.svc.Preview(decimal.Zero, 6)
	assert.ErrorIs(t, err, domain.ErrInvalidPrincipal)
	_, err = f.svc.Preview(dec("3000"), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidTerm)
}

func TestLoanService_Request(t *testing.T) {
	ctx := context.Background()
	f := newLoanFixture()

	loan, err := f.svc.Request(ctx, &RequestLoanInput{
		MemberID:   f.member.ID,
		Principal:  dec("8000"),
		TermMonths: 12,
		Purpose:    "  school fees ",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.LoanPending), loan.Status)
	assert.Equal(t, "school fees", loan.Purpose)
	assert.Equal(t, f.now, loan.RequestDate)
	assert.True(t, loan.InterestRate.Equal(dec("12")))
	assert.True(t, loan.TotalRepayment.Equal(dec("8960")))
	assert.Equal(t, "746.67", loan.MonthlyInstallment.StringFixed(2))
	assert.True(t, loan.AmountRepaid.IsZero())

	t.Run("inactive member", func(t *testing.T) {
		pending := f.members.add("M002", "Sipho", date(2023, 1, 1), domain.MembershipPending)
		_, err := f.svc.Request(ctx, &RequestLoanInput{MemberID: pending.ID, Principal: dec("500"), TermMonths: 3})
		assert.ErrorIs(t, err, ErrMemberNotActive)
	})

	t.Run("unknown member", func(t *testing.T) {
		_, err := f.svc.Request(ctx, &RequestLoanInput{MemberID: 99, Principal: dec("500"), TermMonths: 3})
		assert.ErrorIs(t, err, domain.ErrMemberNotFound)
	})

	t.Run("invalid principal", func(t *testing.T) {
		_, err := f.svc.Request(ctx, &RequestLoanInput{MemberID: f.member.ID, Principal: dec("-1"), TermMonths: 3})
		assert.ErrorIs(t, err, domain.ErrInvalidPrincipal)
	})
}

func TestLoanService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	f := newLoanFixture()

	loan, err := f.svc.Request(ctx, &RequestLoanInput{MemberID: f.member.ID, Principal: dec("1000"), TermMonths: 3})
	require.NoError(t, err)

	_, _, err = f.svc.RecordRepayment(ctx, loan.ID, &RecordRepaymentInput{PaymentMethod: "momo"}, 100)
	assert.ErrorIs(t, err, ErrLoanNotRepayable)

	approved, err := f.svc.Approve(ctx, loan.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, string(domain.LoanApproved), approved.Status)
	require.NotNil(t, approved.ApprovalDate)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, uint(100), *approved.ApprovedBy)

	_, err = f.svc.Approve(ctx, loan.ID, 100)
	assert.ErrorIs(t, err, domain.ErrInvalidLoanTransition)
	_, err = f.svc.MarkOverdue(ctx, loan.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidLoanTransition)

	active, err := f.svc.Activate(ctx, loan.ID)
	require.NoError(t, err)
	require.NotNil(t, active.DisbursedAt)

	_, rep := f.repay(t, loan.ID, nil)
	assert.Equal(t, 1, rep.Sequence)
	assert.True(t, rep.Amount.Equal(dec("350")))

	_, err = f.svc.Reinstate(ctx, loan.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidLoanTransition)

	overdue, err := f.svc.MarkOverdue(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.LoanOverdue), overdue.Status)

	_, rep = f.repay(t, loan.ID, nil)
	assert.Equal(t, 2, rep.Sequence)

	reinstated, err := f.svc.Reinstate(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.LoanActive), reinstated.Status)

	final := dec("350")
	closed, rep := f.repay(t, loan.ID, &final)
	assert.Equal(t, 3, rep.Sequence)
	assert.Equal(t, string(domain.LoanRepaid), closed.Status)
	assert.True(t, closed.AmountRepaid.Equal(dec("1050")))

	stored, err := f.svc.Get(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.LoanRepaid), stored.Status)

	_, _, err = f.svc.RecordRepayment(ctx, loan.ID, &RecordRepaymentInput{PaymentMethod: "momo"}, 100)
	assert.ErrorIs(t, err, ErrLoanNotRepayable)

	assert.Equal(t, []string{
		models.NotifyLoanApproved,
		models.NotifyLoanOverdue,
		models.NotifyLoanRepaid,
	}, f.notifier.kinds())
}

func TestLoanService_Reject(t *testing.T) {
	ctx := context.Background()
	f := newLoanFixture()

	loan, err := f.svc.Request(ctx, &RequestLoanInput{MemberID: f.member.ID, Principal: dec("1000"), TermMonths: 6})
	require.NoError(t, err)

	rejected, err := f.svc.Reject(ctx, loan.ID, 100, " pool too small ")
	require.NoError(t, err)
	assert.Equal(t, string(domain.LoanRejected), rejected.Status)
	assert.Equal(t, "pool too small", rejected.RejectionReason)

	_, err = f.svc.Activate(ctx, loan.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidLoanTransition)
	assert.Equal(t, []string{models.NotifyLoanRejected}, f.notifier.kinds())
}

func TestLoanService_RecordRepaymentValidation(t *testing.T) {
	ctx := context.Background()
	f := newLoanFixture()
	loan := f.activeLoan(t, "1000", 3)

	fractional := dec("100.005")
	zero := decimal.Zero
	over := dec("1050.01")
	tests := []struct {
		name   string
		input  RecordRepaymentInput
		loanID uint
		want   error
	}{
		{"unknown method", RecordRepaymentInput{PaymentMethod: "cheque"}, loan.ID, ErrInvalidPaymentMethod},
		{"unknown loan", RecordRepaymentInput{PaymentMethod: "momo"}, 404, domain.ErrLoanNotFound},
		{"fraction of a cent", RecordRepaymentInput{PaymentMethod: "momo", Amount: &fractional}, loan.ID, ErrInvalidAmount},
		{"zero amount", RecordRepaymentInput{PaymentMethod: "momo", Amount: &zero}, loan.ID, ErrInvalidAmount},
		{"more than remaining", RecordRepaymentInput{PaymentMethod: "momo", Amount: &over}, loan.ID, domain.ErrOverpayment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := tt.input
			_, _, err := f.svc.RecordRepayment(ctx, tt.loanID, &input, 100)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	reps, err := f.svc.Repayments(ctx, loan.ID)
	require.NoError(t, err)
	assert.Empty(t, reps)
}

func TestLoanService_DefaultRepaymentsCloseOnLastInstallment(t *testing.T) {
	f := newLoanFixture()
	loan := f.activeLoan(t, "8000", 12)

	var last *models.Repayment
	for i := 0; i < 12; i++ {
		loan, last = f.repay(t, loan.ID, nil)
	}

	assert.Equal(t, 12, last.Sequence)
	assert.Equal(t, "746.63", last.Amount.StringFixed(2))
	assert.Equal(t, string(domain.LoanRepaid), loan.Status)
	assert.True(t, loan.AmountRepaid.Equal(dec("8960")))
}

func TestLoanService_Schedule(t *testing.T) {
	ctx := context.Background()
	f := newLoanFixture()
	loan := f.activeLoan(t, "8000", 12)
	f.repay(t, loan.ID, nil)
	f.repay(t, loan.ID, nil)

	schedule, err := f.svc.Schedule(ctx, loan.ID)
	require.NoError(t, err)
	require.Len(t, schedule.Installments, 12)

	assert.Equal(t, date(2024, 4, 15), schedule.Installments[0].DueDate)
	assert.True(t, schedule.Installments[0].Covered)
	assert.True(t, schedule.Installments[1].Covered)
	assert.False(t, schedule.Installments[2].Covered)
	assert.Equal(t, "746.63", schedule.Installments[11].Amount.StringFixed(2))

	assert.Equal(t, 2, schedule.Progress.InstallmentsCovered)
	assert.Equal(t, 3, schedule.Progress.NextSequence)
	assert.Equal(t, "7466.66", schedule.Progress.Remaining.StringFixed(2))
}

func TestLoanService_GetForMemberAndList(t *testing.T) {
	ctx := context.Background()
	f := newLoanFixture()
	loan := f.activeLoan(t, "1000", 3)
	other := f.members.add("M002", "Sipho", date(2023, 1, 1), domain.MembershipActive)

	_, err := f.svc.GetForMember(ctx, loan.ID, other.ID)
	assert.ErrorIs(t, err, ErrNotLoanOwner)
	got, err := f.svc.GetForMember(ctx, loan.ID, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.ID, got.ID)

	out, err := f.svc.List(ctx, &ListLoansInput{MemberID: &f.member.ID, Status: "active"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Total)
	require.Len(t, out.Loans, 1)
	assert.Equal(t, "1050.00", out.Loans[0].TotalRepayment)

	out, err = f.svc.List(ctx, &ListLoansInput{MemberID: &other.ID})
	require.NoError(t, err)
	assert.Zero(t, out.Total)

	_, err = f.svc.List(ctx, &ListLoansInput{Status: "closed"})
	assert.ErrorIs(t, err, domain.ErrInvalidLoanStatus)
}
