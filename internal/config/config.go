package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	// DatabaseURL is the primary PostgreSQL endpoint used for batch writes
	// and statistics reads.
	DatabaseURL string

	// ListenDatabaseURL is the endpoint for the change-notification
	// subscription. Defaults to DatabaseURL.
	ListenDatabaseURL string

	// SensorCount is the number of sensors, and therefore the number of
	// readings in a default ingestion batch.
	SensorCount int

	// IngestInterval controls how often the timer trigger ingests a batch.
	IngestInterval time.Duration

	// StoreTimeout bounds every store operation.
	StoreTimeout time.Duration

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	cfg.ListenDatabaseURL = getenvDefault("LISTEN_DATABASE_URL", cfg.DatabaseURL)

	cfg.SensorCount = getenvInt("SENSOR_COUNT", 20)
	if cfg.SensorCount <= 0 {
		return nil, fmt.Errorf("SENSOR_COUNT must be greater than zero")
	}

	// Timer trigger cadence: default 10 seconds.
	intervalStr := getenvDefault("INGEST_INTERVAL", "10s")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid INGEST_INTERVAL: %w", err)
	}
	cfg.IngestInterval = interval

	timeoutStr := getenvDefault("STORE_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_TIMEOUT: %w", err)
	}
	cfg.StoreTimeout = timeout

	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
