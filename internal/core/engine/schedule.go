package engine

import (
	"fmt"
	"time"

	"stockvel-tracker/internal/core/domain"

	"github.com/shopspring/decimal"
)

// Installment is one period of a flat repayment schedule
type Installment struct {
	Sequence int             `json:"sequence"`
	DueDate  time.Time       `json:"due_date"`
	Amount   decimal.Decimal `json:"amount"`
}

// BuildRepaymentSchedule splits the total repayment into equal monthly
// installments rounded to cents, the first due on firstDue. The final
// installment absorbs the rounding residual so the schedule sums to the
// rounded total.
func BuildRepaymentSchedule(terms LoanTerms, firstDue time.Time) ([]Installment, error) {
	if err := ValidateTerm(terms.TermMonths); err != nil {
		return nil, err
	}

	total := terms.TotalRepayment.Round(CurrencyPlaces)
	installment := terms.MonthlyInstallment.Round(CurrencyPlaces)

	schedule := make([]Installment, 0, terms.TermMonths)
	scheduled := decimal.Zero
	for seq := 1; seq <= terms.TermMonths; seq++ {
		amount := installment
		if seq == terms.TermMonths {
			amount = total.Sub(scheduled)
		}
		scheduled = scheduled.Add(amount)

		schedule = append(schedule, Installment{
			Sequence: seq,
			DueDate:  firstDue.AddDate(0, seq-1, 0),
			Amount:   amount,
		})
	}
	return schedule, nil
}

// PayableTotal is the loan's total repayment in whole cents, the most that
// can ever be collected against it
func PayableTotal(loan domain.Loan) decimal.Decimal {
	return loan.TotalRepayment.Round(CurrencyPlaces)
}

// checkRepaid rejects a loan whose cumulative repaid is negative or above its payable total
func checkRepaid(loan domain.Loan) error {
	if loan.AmountRepaid.IsNegative() || loan.AmountRepaid.GreaterThan(PayableTotal(loan)) {
		return fmt.Errorf("%w: loan %d repaid %s of %s",
			domain.ErrInconsistentLedger, loan.ID, loan.AmountRepaid, PayableTotal(loan))
	}
	return nil
}

// RepaymentProgress summarises how far a loan has been repaid
type RepaymentProgress struct {
	AmountRepaid        decimal.Decimal `json:"amount_repaid"`
	Remaining           decimal.Decimal `json:"remaining"`
	PercentRepaid       decimal.Decimal `json:"percent_repaid"`
	InstallmentsCovered int             `json:"installments_covered"`
	NextSequence        int             `json:"next_sequence"`
}

// RepaymentProgressFor checks a loan against its repayments and reports progress.
// The repayments must sum to the loan's cumulative amount repaid, which may not
// exceed the payable total.
func RepaymentProgressFor(loan domain.Loan, repayments []domain.Repayment) (RepaymentProgress, error) {
	sum := decimal.Zero
	lastSeq := 0
	for _, r := range repayments {
		if r.LoanID != loan.ID {
			return RepaymentProgress{}, fmt.Errorf("%w: repayment %d belongs to loan %d, not %d",
				domain.ErrInconsistentLedger, r.ID, r.LoanID, loan.ID)
		}
		sum = sum.Add(r.Amount)
		if r.Sequence > lastSeq {
			lastSeq = r.Sequence
		}
	}
	if !sum.Equal(loan.AmountRepaid) {
		return RepaymentProgress{}, fmt.Errorf("%w: loan %d repayments sum to %s but amount repaid is %s",
			domain.ErrInconsistentLedger, loan.ID, sum, loan.AmountRepaid)
	}
	if err := checkRepaid(loan); err != nil {
		return RepaymentProgress{}, err
	}

	payable := PayableTotal(loan)
	progress := RepaymentProgress{
		AmountRepaid:  loan.AmountRepaid,
		Remaining:     payable.Sub(loan.AmountRepaid),
		PercentRepaid: decimal.Zero,
		NextSequence:  lastSeq + 1,
	}
	if payable.IsPositive() {
		progress.PercentRepaid = loan.AmountRepaid.Div(payable).Mul(hundred)
	}
	if loan.MonthlyInstallment.IsPositive() {
		covered := loan.AmountRepaid.Div(loan.MonthlyInstallment).Floor().IntPart()
		progress.InstallmentsCovered = int(covered)
		if progress.InstallmentsCovered > loan.TermMonths {
			progress.InstallmentsCovered = loan.TermMonths
		}
	}
	return progress, nil
}
