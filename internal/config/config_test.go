package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_MODE", "dev")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsDev())
	assert.True(t, cfg.Stockvel.MonthlyContribution.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, "E", cfg.Stockvel.CurrencySymbol)
	assert.Equal(t, 12, cfg.Stockvel.FiscalYearMonths)
	assert.False(t, cfg.Stockvel.ProrateLateJoiners)
	assert.Equal(t, "0 5 0 1 * *", cfg.Cron.OpenPeriodSpec)
	assert.False(t, cfg.Cloudinary.Enabled())
	assert.Same(t, cfg, AppConfig)
}

func TestLoad_ProdPrefix(t *testing.T) {
	t.Setenv("APP_MODE", "prod")
	t.Setenv("PROD_DB_NAME", "stockvel_prod")
	t.Setenv("PROD_JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "stockvel_prod", cfg.Database.DBName)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
}

func TestLoad_DatabasePool(t *testing.T) {
	t.Setenv("APP_MODE", "dev")
	t.Setenv("DEV_DB_USER", "stokvel")
	t.Setenv("DEV_DB_PASS", "pw")
	t.Setenv("DB_MAX_OPEN_CONNS", "40")
	t.Setenv("DB_CONN_MAX_LIFETIME", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	assert.Equal(t, 90*time.Second, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 5, cfg.Database.ConnectRetries)
	assert.Equal(t, "stokvel:pw@tcp(localhost:3306)/stockvel_tracker?charset=utf8mb4&parseTime=True&loc=UTC", cfg.Database.DSN())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"mode", "APP_MODE", "staging"},
		{"monthly not a number", "MONTHLY_CONTRIBUTION", "five hundred"},
		{"monthly not positive", "MONTHLY_CONTRIBUTION", "-1"},
		{"fiscal year", "FISCAL_YEAR_MONTHS", "13"},
		{"prorate flag", "PRORATE_LATE_JOINERS", "maybe"},
		{"cron flag", "CRON_ENABLED", "sometimes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestIsAllowedTerm(t *testing.T) {
	for _, m := range []int{3, 6, 9, 12, 18, 24} {
		assert.True(t, IsAllowedTerm(m), "%d months", m)
	}
	for _, m := range []int{0, 1, 4, 36} {
		assert.False(t, IsAllowedTerm(m), "%d months", m)
	}
}

func TestCloudinaryConfig_Enabled(t *testing.T) {
	c := CloudinaryConfig{CloudName: "demo", APIKey: "key"}
	assert.False(t, c.Enabled())

	c.APISecret = "secret"
	assert.True(t, c.Enabled())
}
