package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"autotrading/internal/adapters/logger"
)

// Config holds all application configuration.
type Config struct {
	// Binance API (optional: the data cache works without keys)
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Simulation Parameters
	Symbol        string
	SimStart      time.Time
	SimEnd        time.Time
	TimeStep      time.Duration
	StartingFunds float64
	OrderFee      float64

	// Data
	CacheDir string

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	// Simulation Parameters
	cfg.Symbol = getEnv("SYMBOL", "SPY")
	if cfg.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}

	cfg.SimStart, err = getEnvAsDate("SIM_START", time.Now().UTC().AddDate(0, -1, 0))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SIM_START: %v", err))
	}
	cfg.SimEnd, err = getEnvAsDate("SIM_END", time.Now().UTC().AddDate(0, 0, -1))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SIM_END: %v", err))
	}
	if cfg.SimEnd.Before(cfg.SimStart) {
		errs = append(errs, "SIM_END must not be before SIM_START")
	}

	stepSeconds, err := getEnvAsIntRequired("TIME_STEP_SECONDS", 86400)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TIME_STEP_SECONDS: %v", err))
	} else if stepSeconds <= 0 || stepSeconds > 86400 {
		errs = append(errs, "TIME_STEP_SECONDS must be in (0, 86400]")
	}
	cfg.TimeStep = time.Duration(stepSeconds) * time.Second

	cfg.StartingFunds, err = getEnvAsFloatRequired("STARTING_FUNDS", 10000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STARTING_FUNDS: %v", err))
	} else if cfg.StartingFunds <= 0 {
		errs = append(errs, "STARTING_FUNDS must be positive")
	}

	cfg.OrderFee, err = getEnvAsFloatRequired("ORDER_FEE", 0.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid ORDER_FEE: %v", err))
	} else if cfg.OrderFee < 0 {
		errs = append(errs, "ORDER_FEE cannot be negative")
	}

	// Data
	cfg.CacheDir = getEnv("HIST_CACHE_DIR", "./data/hist_cache")
	if cfg.CacheDir == "" {
		errs = append(errs, "HIST_CACHE_DIR must be set")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/autotrading.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr)

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsDate(key string, defaultValue time.Time) (time.Time, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := time.ParseInLocation("2006-01-02", valueStr, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
