// Package config reads process configuration from the environment,
// following the getRequiredEnvInt convention in the teacher's
// enclave/server.go: a defaulted accessor per primitive type, logging any
// value it takes from the environment or rejects as invalid.
package config

import (
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds the engine's environment-derived settings.
type Config struct {
	// SchedulerInterval is the RoundScheduler's polling cadence.
	SchedulerInterval time.Duration
	// LedgerInitialBalance seeds a new user's starting balance.
	LedgerInitialBalance decimal.Decimal
	// MinRoundDuration is the floor createAuction enforces on roundDuration.
	MinRoundDuration time.Duration
	// DefaultAntiSnipingWindow is used when a caller omits antiSnipingWindow.
	DefaultAntiSnipingWindow time.Duration
}

// FromEnv builds a Config from the process environment, falling back to
// spec-mandated defaults for anything unset.
func FromEnv() Config {
	return Config{
		SchedulerInterval:        getEnvDuration("AUCTION_SCHEDULER_INTERVAL", 5*time.Second),
		LedgerInitialBalance:     getEnvDecimal("AUCTION_LEDGER_INITIAL_BALANCE", decimal.NewFromInt(1000)),
		MinRoundDuration:         getEnvDuration("AUCTION_MIN_ROUND_DURATION", 10*time.Second),
		DefaultAntiSnipingWindow: getEnvDuration("AUCTION_DEFAULT_ANTI_SNIPE_WINDOW", 10*time.Second),
	}
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("WARNING: invalid value for %s: %s (must be a duration like \"10s\"); using default %s", key, value, fallback)
		return fallback
	}
	log.Printf("INFO: using %s=%s from environment", key, d)
	return d
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		log.Printf("WARNING: invalid value for %s: %s (must be a decimal amount); using default %s", key, value, fallback)
		return fallback
	}
	log.Printf("INFO: using %s=%s from environment", key, d)
	return d
}
