package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN          string
	Environment    string
	MigrationsPath string

	MonthlyCancelLimit int
	CancelNotice       time.Duration
	MakeupValidity     time.Duration
	MakeupCeiling      time.Duration
	ReminderWindow     time.Duration
	SweepInterval      time.Duration
	StoreTimeout       time.Duration
}

// Load reads the .env file when present, then the environment. Business
// knobs default to the school's standing policy; only the DSN is required.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		DBDSN:          os.Getenv("DB_DSN"),
		Environment:    getEnv("ENV", "development"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),

		MonthlyCancelLimit: getInt("MONTHLY_CANCEL_LIMIT", 3),
		CancelNotice:       getHours("CANCEL_NOTICE_HOURS", 24),
		MakeupValidity:     getDays("MAKEUP_VALID_DAYS", 30),
		MakeupCeiling:      getDays("MAKEUP_MAX_DAYS", 60),
		ReminderWindow:     getDays("MAKEUP_REMINDER_DAYS", 7),
		SweepInterval:      getHours("SWEEP_INTERVAL_HOURS", 24),
		StoreTimeout:       getSeconds("STORE_TIMEOUT_SECONDS", 5),
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.MonthlyCancelLimit < 1 {
		return nil, fmt.Errorf("MONTHLY_CANCEL_LIMIT must be at least 1")
	}
	if cfg.MakeupCeiling < cfg.MakeupValidity {
		return nil, fmt.Errorf("MAKEUP_MAX_DAYS must not be below MAKEUP_VALID_DAYS")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Ignoring %s=%q: %v", key, v, err)
		return fallback
	}
	return n
}

func getHours(key string, fallback int) time.Duration {
	return time.Duration(getInt(key, fallback)) * time.Hour
}

func getDays(key string, fallback int) time.Duration {
	return time.Duration(getInt(key, fallback)) * 24 * time.Hour
}

func getSeconds(key string, fallback int) time.Duration {
	return time.Duration(getInt(key, fallback)) * time.Second
}
