package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	// Server
	Port            int
	Environment     string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	MaxUploadBytes  int64

	// Logging
	LogFormat string
	LogLevel  string

	// Database. An empty URL selects the in-memory store.
	DatabaseURL         string
	DBMaxConnections    int
	DBConnectionTimeout time.Duration
	SeedOnStart         bool

	// Clerk Auth. An empty key disables authentication.
	ClerkSecretKey string

	// S3
	S3Bucket    string
	S3Region    string
	AWSEndpoint string // For LocalStack in development

	// Planning defaults
	DefaultMonthlyIncome  decimal.Decimal
	DefaultMonthlyCosts   decimal.Decimal
	InvestmentPercentage  decimal.Decimal
	EmergencyContribution decimal.Decimal
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Port:                  getEnvInt("PORT", 8080),
		Environment:           getEnv("ENVIRONMENT", "development"),
		ShutdownTimeout:       getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		CORSOrigins:           getEnvList("CORS_ALLOW_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"}),
		MaxUploadBytes:        int64(getEnvInt("MAX_UPLOAD_BYTES", 5*1024*1024)),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		DBMaxConnections:      getEnvInt("DB_MAX_CONNECTIONS", 10),
		DBConnectionTimeout:   getEnvDuration("DB_CONNECTION_TIMEOUT", 10*time.Second),
		SeedOnStart:           getEnvBool("SEED_ON_START", true),
		ClerkSecretKey:        getEnv("CLERK_SECRET_KEY", ""),
		S3Bucket:              getEnv("S3_BUCKET", ""),
		S3Region:              getEnv("S3_REGION", "eu-south-1"),
		AWSEndpoint:           getEnv("AWS_ENDPOINT", ""),
		DefaultMonthlyIncome:  getEnvDecimal("DEFAULT_MONTHLY_INCOME", decimal.NewFromInt(3500)),
		DefaultMonthlyCosts:   getEnvDecimal("DEFAULT_MONTHLY_COSTS", decimal.NewFromInt(2500)),
		InvestmentPercentage:  getEnvDecimal("INVESTMENT_PERCENTAGE", decimal.RequireFromString("0.10")),
		EmergencyContribution: getEnvDecimal("EMERGENCY_CONTRIBUTION", decimal.RequireFromString("0.05")),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" && cfg.IsProduction() {
		return nil, fmt.Errorf("DATABASE_URL is required in production")
	}
	if cfg.ClerkSecretKey == "" && cfg.IsProduction() {
		return nil, fmt.Errorf("CLERK_SECRET_KEY is required in production")
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	for name, rate := range map[string]decimal.Decimal{
		"INVESTMENT_PERCENTAGE":  cfg.InvestmentPercentage,
		"EMERGENCY_CONTRIBUTION": cfg.EmergencyContribution,
	} {
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("%s must be between 0 and 1", name)
		}
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty entries
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
