package engine

import (
	"fmt"
	"sort"

	"stockvel-tracker/internal/core/domain"

	"github.com/shopspring/decimal"
)

// MemberTotal is one member's verified contributions for the year
type MemberTotal struct {
	MemberID         uint            `json:"member_id"`
	TotalContributed decimal.Decimal `json:"total_contributed"`
}

// PayoutShare is a member's entitlement from the distributable pool
type PayoutShare struct {
	MemberID         uint            `json:"member_id"`
	TotalContributed decimal.Decimal `json:"total_contributed"`
	Share            decimal.Decimal `json:"payout_share"`
}

// PayoutAllocation is the result of distributing a pool
type PayoutAllocation struct {
	DistributablePool decimal.Decimal `json:"distributable_pool"`
	PoolContributed   decimal.Decimal `json:"pool_contributed"`
	Shares            []PayoutShare   `json:"shares"`
}

// AllocatePayouts splits pool across members in proportion to their totals.
// Every share is truncated to whole cents and the cents left over go one at a
// time to the largest truncated remainders, ties in input order. Shares sum to
// the pool rounded to cents and are never negative. When nobody contributed
// every share is zero.
//
// The caller must supply a consistent snapshot of all members' totals.
func AllocatePayouts(totals []MemberTotal, pool decimal.Decimal) (PayoutAllocation, error) {
	if pool.IsNegative() {
		return PayoutAllocation{}, fmt.Errorf("%w: %s", domain.ErrNegativePool, pool)
	}

	poolContributed := decimal.Zero
	seen := make(map[uint]struct{}, len(totals))
	for _, t := range totals {
		if t.TotalContributed.IsNegative() {
			return PayoutAllocation{}, fmt.Errorf("%w: member %d has negative contributions %s",
				domain.ErrInconsistentLedger, t.MemberID, t.TotalContributed)
		}
		if _, dup := seen[t.MemberID]; dup {
			return PayoutAllocation{}, fmt.Errorf("%w: member %d appears twice in payout snapshot",
				domain.ErrInconsistentLedger, t.MemberID)
		}
		seen[t.MemberID] = struct{}{}
		poolContributed = poolContributed.Add(t.TotalContributed)
	}

	rounded := pool.Round(CurrencyPlaces)
	allocation := PayoutAllocation{
		DistributablePool: rounded,
		PoolContributed:   poolContributed,
		Shares:            make([]PayoutShare, len(totals)),
	}

	type remainder struct {
		index int
		value decimal.Decimal
	}
	var remainders []remainder
	allocated := decimal.Zero
	for i, t := range totals {
		share := decimal.Zero
		if poolContributed.IsPositive() && t.TotalContributed.IsPositive() {
			exact := t.TotalContributed.Mul(rounded).Div(poolContributed)
			share = exact.RoundFloor(CurrencyPlaces)
			remainders = append(remainders, remainder{index: i, value: exact.Sub(share)})
			allocated = allocated.Add(share)
		}
		allocation.Shares[i] = PayoutShare{
			MemberID:         t.MemberID,
			TotalContributed: t.TotalContributed,
			Share:            share,
		}
	}

	if len(remainders) == 0 {
		return allocation, nil
	}
	sort.SliceStable(remainders, func(a, b int) bool {
		return remainders[a].value.GreaterThan(remainders[b].value)
	})
	cent := decimal.New(1, -CurrencyPlaces)
	left := rounded.Sub(allocated).Div(cent).IntPart()
	for k := int64(0); k < left; k++ {
		i := remainders[k%int64(len(remainders))].index
		allocation.Shares[i].Share = allocation.Shares[i].Share.Add(cent)
	}
	return allocation, nil
}

// OutstandingPrincipal is the part of a loan's principal not yet returned.
// Each repayment is split between principal and interest in the loan's
// principal-to-payable-total ratio.
func OutstandingPrincipal(loan domain.Loan) (decimal.Decimal, error) {
	if err := checkRepaid(loan); err != nil {
		return decimal.Zero, err
	}
	payable := PayableTotal(loan)
	if !payable.IsPositive() {
		return loan.Principal, nil
	}
	returned := loan.AmountRepaid.Mul(loan.Principal).Div(payable)
	return loan.Principal.Sub(returned), nil
}

// DistributablePool subtracts principal still out on loan from the collected fund
func DistributablePool(collected decimal.Decimal, loans []domain.Loan) (decimal.Decimal, error) {
	pool := collected
	for _, l := range loans {
		if !l.Status.OwesPool() {
			continue
		}
		owed, err := OutstandingPrincipal(l)
		if err != nil {
			return decimal.Zero, err
		}
		pool = pool.Sub(owed)
	}
	return pool, nil
}
