package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// AllowedTermMonths are the loan terms offered to members
var AllowedTermMonths = []int{3, 6, 9, 12, 18, 24}

// IsAllowedTerm reports whether months is one of the offered loan terms
func IsAllowedTerm(months int) bool {
	for _, t := range AllowedTermMonths {
		if t == months {
			return true
		}
	}
	return false
}

// Config holds all configuration for the application
type Config struct {
	AppMode    string
	Port       string
	Database   DatabaseConfig
	JWT        JWTConfig
	Cookie     CookieConfig
	Stockvel   StockvelConfig
	Cron       CronConfig
	Cloudinary CloudinaryConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// ConnectRetries is how many extra attempts are made while the server starts up
	ConnectRetries int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	RefreshSecret    string
	AccessTokenMins  int
	RefreshTokenDays int
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// StockvelConfig holds the savings group's policy settings
type StockvelConfig struct {
	MonthlyContribution decimal.Decimal
	CurrencySymbol      string
	FiscalYearMonths    int
	// ProrateLateJoiners counts only the months since joining as owed
	ProrateLateJoiners bool
}

// CronConfig holds background job schedules (with seconds field)
type CronConfig struct {
	Enabled          bool
	OpenPeriodSpec   string
	RiskSnapshotSpec string
	TokenCleanupSpec string
}

// CloudinaryConfig holds avatar storage credentials. Empty disables uploads.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Enabled reports whether all credentials are present
func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	stockvel, err := loadStockvelConfig()
	if err != nil {
		return nil, err
	}

	cronCfg, err := loadCronConfig()
	if err != nil {
		return nil, err
	}

	config := &Config{
		AppMode:    appMode,
		Port:       getEnv("PORT", "3000"),
		Database:   loadDatabaseConfig(appMode),
		JWT:        loadJWTConfig(appMode),
		Cookie:     loadCookieConfig(appMode),
		Stockvel:   stockvel,
		Cron:       cronCfg,
		Cloudinary: loadCloudinaryConfig(),
	}

	// Set global config
	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := modePrefix(mode)

	maxOpen, _ := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "25"))
	maxIdle, _ := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "5"))
	retries, _ := strconv.Atoi(getEnv("DB_CONNECT_RETRIES", "5"))
	lifetime, err := time.ParseDuration(getEnv("DB_CONN_MAX_LIFETIME", "1h"))
	if err != nil {
		log.Printf("⚠️ Invalid DB_CONN_MAX_LIFETIME, using 1h: %v", err)
		lifetime = time.Hour
	}

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "stockvel_tracker"),

		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: lifetime,
		ConnectRetries:  retries,
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := modePrefix(mode)

	accessMins, _ := strconv.Atoi(getEnv("ACCESS_TOKEN_MINUTES", "15"))
	refreshDays, _ := strconv.Atoi(getEnv("REFRESH_TOKEN_DAYS", "7"))

	return JWTConfig{
		Secret:           getEnv(prefix+"JWT_SECRET", "default_secret"),
		RefreshSecret:    getEnv(prefix+"JWT_REFRESH_SECRET", "default_refresh_secret"),
		AccessTokenMins:  accessMins,
		RefreshTokenDays: refreshDays,
	}
}

// loadCookieConfig loads cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	secure, _ := strconv.ParseBool(getEnv(modePrefix(mode)+"COOKIE_SECURE", "false"))

	return CookieConfig{
		Secure:   secure,
		SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

// loadStockvelConfig loads contribution policy
func loadStockvelConfig() (StockvelConfig, error) {
	monthly, err := decimal.NewFromString(getEnv("MONTHLY_CONTRIBUTION", "500"))
	if err != nil {
		return StockvelConfig{}, fmt.Errorf("invalid MONTHLY_CONTRIBUTION: %w", err)
	}
	if !monthly.IsPositive() {
		return StockvelConfig{}, fmt.Errorf("invalid MONTHLY_CONTRIBUTION: %s (must be positive)", monthly)
	}

	months, err := strconv.Atoi(getEnv("FISCAL_YEAR_MONTHS", "12"))
	if err != nil {
		return StockvelConfig{}, fmt.Errorf("invalid FISCAL_YEAR_MONTHS: %w", err)
	}
	if months != 12 {
		return StockvelConfig{}, fmt.Errorf("invalid FISCAL_YEAR_MONTHS: %d (only calendar years are supported)", months)
	}

	prorate, err := strconv.ParseBool(getEnv("PRORATE_LATE_JOINERS", "false"))
	if err != nil {
		return StockvelConfig{}, fmt.Errorf("invalid PRORATE_LATE_JOINERS: %w", err)
	}

	return StockvelConfig{
		MonthlyContribution: monthly,
		CurrencySymbol:      getEnv("CURRENCY_SYMBOL", "E"),
		FiscalYearMonths:    months,
		ProrateLateJoiners:  prorate,
	}, nil
}

// loadCronConfig loads job schedules
func loadCronConfig() (CronConfig, error) {
	enabled, err := strconv.ParseBool(getEnv("CRON_ENABLED", "true"))
	if err != nil {
		return CronConfig{}, fmt.Errorf("invalid CRON_ENABLED: %w", err)
	}

	return CronConfig{
		Enabled:          enabled,
		OpenPeriodSpec:   getEnv("CRON_OPEN_PERIOD_SPEC", "0 5 0 1 * *"),
		RiskSnapshotSpec: getEnv("CRON_RISK_SNAPSHOT_SPEC", "0 30 8 * * *"),
		TokenCleanupSpec: getEnv("CRON_TOKEN_CLEANUP_SPEC", "0 0 3 * * *"),
	}, nil
}

// loadCloudinaryConfig loads avatar storage settings
func loadCloudinaryConfig() CloudinaryConfig {
	return CloudinaryConfig{
		CloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		APIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		APISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		Folder:    getEnv("CLOUDINARY_FOLDER", "stockvel/avatars"),
	}
}

func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://stockvel.example.org"
	}
	return origins
}
