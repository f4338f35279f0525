package engine_test

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockvel-tracker/internal/core/domain"
	"stockvel-tracker/internal/core/engine"
)

func TestResolveInterestRate_Bands(t *testing.T) {
	tests := []struct {
		principal string
		rate      int64
	}{
		{"0.01", 5},
		{"500", 5},
		{"1000", 5},
		{"1000.50", 8},
		{"1001", 8},
		{"3000", 8},
		{"5000", 8},
		{"5001", 12},
		{"10000", 12},
		{"10001", 15},
		{"25000", 15},
		{"25001", 18},
		{"1000000", 18},
	}

	for _, tt := range tests {
		t.Run(tt.principal, func(t *testing.T) {
			rate, err := engine.ResolveInterestRate(decimal.RequireFromString(tt.principal))
			require.NoError(t, err)
			assert.True(t, rate.Equal(decimal.NewFromInt(tt.rate)),
				"principal %s: expected %d%%, got %s%%", tt.principal, tt.rate, rate)
		})
	}
}

func TestResolveInterestRate_RejectsNonPositive(t *testing.T) {
	for _, p := range []string{"0", "-1", "-25000"} {
		_, err := engine.ResolveInterestRate(decimal.RequireFromString(p))
		assert.ErrorIs(t, err, domain.ErrInvalidPrincipal, "principal %s", p)
	}
}

func TestInterestTiers_AscendingAndOpenEnded(t *testing.T) {
	tiers := engine.InterestTiers()
	require.Len(t, tiers, 5)

	for i := 1; i < len(tiers)-1; i++ {
		assert.True(t, tiers[i].Ceiling.GreaterThan(tiers[i-1].Ceiling))
		assert.True(t, tiers[i].Rate.GreaterThan(tiers[i-1].Rate))
	}
	assert.True(t, tiers[len(tiers)-1].Open())

	// mutating the copy must not leak into the resolver
	tiers[0].Rate = decimal.NewFromInt(99)
	rate, err := engine.ResolveInterestRate(decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(5)))
}

func TestPrincipalFromFloat(t *testing.T) {
	p, err := engine.PrincipalFromFloat(3000)
	require.NoError(t, err)
	assert.True(t, p.Equal(decimal.NewFromInt(3000)))

	for _, bad := range []float64{0, -10, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := engine.PrincipalFromFloat(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidPrincipal, "amount %v", bad)
	}
}
