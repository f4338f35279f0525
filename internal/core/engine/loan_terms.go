package engine

import (
	"fmt"

	"stockvel-tracker/internal/core/domain"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the number of decimal places money is presented with
const CurrencyPlaces = 2

var hundred = decimal.NewFromInt(100)

// LoanTerms are the derived figures of a simple-interest loan.
// Values keep full precision; use Rounded for presentation.
type LoanTerms struct {
	Principal          decimal.Decimal `json:"principal"`
	InterestRate       decimal.Decimal `json:"interest_rate"`
	TermMonths         int             `json:"term_months"`
	TotalInterest      decimal.Decimal `json:"total_interest"`
	TotalRepayment     decimal.Decimal `json:"total_repayment"`
	MonthlyInstallment decimal.Decimal `json:"monthly_installment"`
}

// ValidateTerm rejects non-positive term lengths
func ValidateTerm(termMonths int) error {
	if termMonths <= 0 {
		return fmt.Errorf("%w: %d months", domain.ErrInvalidTerm, termMonths)
	}
	return nil
}

// CalculateLoanTerms derives interest, total and flat monthly installment.
// Interest is simple interest over the whole term, not per period.
func CalculateLoanTerms(principal decimal.Decimal, termMonths int) (LoanTerms, error) {
	rate, err := ResolveInterestRate(principal)
	if err != nil {
		return LoanTerms{}, err
	}
	if err := ValidateTerm(termMonths); err != nil {
		return LoanTerms{}, err
	}

	totalInterest := principal.Mul(rate).Div(hundred)
	totalRepayment := principal.Add(totalInterest)

	return LoanTerms{
		Principal:          principal,
		InterestRate:       rate,
		TermMonths:         termMonths,
		TotalInterest:      totalInterest,
		TotalRepayment:     totalRepayment,
		MonthlyInstallment: totalRepayment.Div(decimal.NewFromInt(int64(termMonths))),
	}, nil
}

// Rounded returns a copy with money fields rounded to currency precision
func (t LoanTerms) Rounded() LoanTerms {
	t.Principal = t.Principal.Round(CurrencyPlaces)
	t.TotalInterest = t.TotalInterest.Round(CurrencyPlaces)
	t.TotalRepayment = t.TotalRepayment.Round(CurrencyPlaces)
	t.MonthlyInstallment = t.MonthlyInstallment.Round(CurrencyPlaces)
	return t
}

// ApplyTo copies the derived figures onto a loan record
func (t LoanTerms) ApplyTo(loan *domain.Loan) {
	loan.Principal = t.Principal
	loan.InterestRate = t.InterestRate
	loan.TermMonths = t.TermMonths
	loan.TotalRepayment = t.TotalRepayment
	loan.MonthlyInstallment = t.MonthlyInstallment
}
