package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Config carries everything the server reads from the environment.
type Config struct {
	Port            string
	DatabaseDSN     string
	JWTSecret       string
	CronSecret      string
	StagingTTL      time.Duration
	SessionWindow   time.Duration
	CleanupSchedule string
	UploadRateLimit int
	UsageServiceURL string
}

// Load reads configuration from env vars, applying dev defaults.
func Load() *Config {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseDSN:     buildDSN(),
		JWTSecret:       getEnv("JWT_SECRET", "dev-secret-change-me"),
		CronSecret:      getEnv("CRON_SECRET", ""),
		StagingTTL:      getDuration("STAGING_TTL", 7*24*time.Hour),
		SessionWindow:   getDuration("SESSION_WINDOW", 2*time.Hour),
		CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "0 3 * * *"),
		UploadRateLimit: getInt("UPLOAD_RATE_LIMIT", 30),
		UsageServiceURL: getEnv("USAGE_SERVICE_URL", ""),
	}
	if cfg.CronSecret == "" {
		log.Println("WARNING: CRON_SECRET not set, cron endpoints are disabled")
	}
	return cfg
}

func buildDSN() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "trading_journal"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

// InitDB opens the Postgres connection used by the whole server.
func InitDB(cfg *Config) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return db
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
