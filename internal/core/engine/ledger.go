package engine

import (
	"fmt"
	"time"

	"stockvel-tracker/internal/core/domain"

	"github.com/shopspring/decimal"
)

// FullYearPeriods is the obligation of a member enrolled for the whole year
const FullYearPeriods = 12

// LedgerOptions parameterise the contribution aggregate
type LedgerOptions struct {
	// MonthlyAmount is the fixed contribution per period
	MonthlyAmount decimal.Decimal
	// PeriodsApplicable is how many periods the member owes this year
	PeriodsApplicable int
	// AsOf decides which periods are open; later periods never count as outstanding
	AsOf time.Time
}

// LedgerSummary is a member's contribution position for one fiscal year
type LedgerSummary struct {
	PaidMonths        int             `json:"paid_months"`
	OutstandingMonths int             `json:"outstanding_months"`
	TotalContributed  decimal.Decimal `json:"total_contributed"`
	ExpectedTotal     decimal.Decimal `json:"expected_total"`
	CompletionPercent decimal.Decimal `json:"completion_percent"`
}

// AggregateContributions reduces one member's contribution records for a year.
// Records must belong to a single member with at most one record per period.
func AggregateContributions(records []domain.Contribution, opts LedgerOptions) (LedgerSummary, error) {
	periods := opts.PeriodsApplicable
	if periods < 0 {
		return LedgerSummary{}, fmt.Errorf("%w: %d applicable periods", domain.ErrInvalidInput, periods)
	}

	if err := checkContributionRecords(records); err != nil {
		return LedgerSummary{}, err
	}

	summary := LedgerSummary{TotalContributed: decimal.Zero}
	for _, c := range records {
		switch {
		case c.Paid:
			summary.PaidMonths++
			summary.TotalContributed = summary.TotalContributed.Add(c.Amount)
		case c.Period.IsOpen(opts.AsOf):
			summary.OutstandingMonths++
		}
	}

	summary.ExpectedTotal = opts.MonthlyAmount.Mul(decimal.NewFromInt(int64(periods)))
	summary.CompletionPercent = decimal.Zero
	if summary.ExpectedTotal.IsPositive() {
		summary.CompletionPercent = summary.TotalContributed.Div(summary.ExpectedTotal).Mul(hundred)
	}
	return summary, nil
}

func checkContributionRecords(records []domain.Contribution) error {
	if len(records) == 0 {
		return nil
	}
	memberID := records[0].MemberID
	seen := make(map[domain.Period]struct{}, len(records))
	for _, c := range records {
		if c.MemberID != memberID {
			return fmt.Errorf("%w: contributions for members %d and %d mixed in one ledger",
				domain.ErrInconsistentLedger, memberID, c.MemberID)
		}
		if _, dup := seen[c.Period]; dup {
			return fmt.Errorf("%w: member %d has more than one contribution for %s",
				domain.ErrInconsistentLedger, c.MemberID, c.Period)
		}
		seen[c.Period] = struct{}{}
	}
	return nil
}

// ApplicablePeriods counts the periods of year a member joining on joinDate owes.
// Members who joined before the year owe all of it; members joining after owe none.
func ApplicablePeriods(joinDate time.Time, year int) int {
	switch {
	case joinDate.Year() < year:
		return FullYearPeriods
	case joinDate.Year() > year:
		return 0
	}
	return FullYearPeriods - int(joinDate.Month()) + 1
}
