// Package engine holds the stockvel's financial rules. Every function is a pure
// computation over records already fetched by the caller.
package engine

import (
	"fmt"
	"math"

	"stockvel-tracker/internal/core/domain"

	"github.com/shopspring/decimal"
)

// InterestTier maps principals up to and including Ceiling to Rate percent.
// A zero Ceiling marks the open-ended top band.
type InterestTier struct {
	Ceiling decimal.Decimal
	Rate    decimal.Decimal
}

// Open reports whether the tier has no upper bound
func (t InterestTier) Open() bool {
	return t.Ceiling.IsZero()
}

// interestTiers are evaluated in order; the first band whose ceiling is not
// below the principal wins, so boundary values fall into the lower band.
var interestTiers = []InterestTier{
	{Ceiling: decimal.NewFromInt(1_000), Rate: decimal.NewFromInt(5)},
	{Ceiling: decimal.NewFromInt(5_000), Rate: decimal.NewFromInt(8)},
	{Ceiling: decimal.NewFromInt(10_000), Rate: decimal.NewFromInt(12)},
	{Ceiling: decimal.NewFromInt(25_000), Rate: decimal.NewFromInt(15)},
	{Rate: decimal.NewFromInt(18)},
}

// InterestTiers returns a copy of the band table, lowest band first
func InterestTiers() []InterestTier {
	out := make([]InterestTier, len(interestTiers))
	copy(out, interestTiers)
	return out
}

// ResolveInterestRate returns the percentage rate for a principal
func ResolveInterestRate(principal decimal.Decimal) (decimal.Decimal, error) {
	if !principal.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrInvalidPrincipal, principal)
	}
	for _, tier := range interestTiers {
		if tier.Open() || principal.LessThanOrEqual(tier.Ceiling) {
			return tier.Rate, nil
		}
	}
	// unreachable: the last tier is open
	return interestTiers[len(interestTiers)-1].Rate, nil
}

// PrincipalFromFloat converts a request amount to a decimal principal,
// rejecting NaN, infinities and non-positive values.
func PrincipalFromFloat(amount float64) (decimal.Decimal, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrInvalidPrincipal, amount)
	}
	return decimal.NewFromFloat(amount), nil
}
