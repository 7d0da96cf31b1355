// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, populated from environment
// variables with a .env fallback for local development.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	HealthPort  int    `env:"HEALTH_PORT" envDefault:"8080"`

	// Vision capability (OCR + theme extraction)
	VisionAPIKey    string        `env:"VISION_API_KEY"`
	VisionModel     string        `env:"VISION_MODEL" envDefault:"gpt-4o-mini"`
	VisionTimeout   time.Duration `env:"VISION_TIMEOUT" envDefault:"60s"`
	VisionRateRPS   float64       `env:"VISION_RATE_RPS" envDefault:"2"`
	MediaBaseURL    string        `env:"MEDIA_BASE_URL" envDefault:""`

	// Analysis worker
	AnalysisMaxAttempts   int           `env:"ANALYSIS_MAX_ATTEMPTS" envDefault:"3"`
	AnalysisRetryBaseWait time.Duration `env:"ANALYSIS_RETRY_BASE_WAIT" envDefault:"1s"`

	// Backfill scanner
	BackfillInterval    time.Duration `env:"BACKFILL_INTERVAL" envDefault:"10m"`
	BackfillGracePeriod time.Duration `env:"BACKFILL_GRACE_PERIOD" envDefault:"15m"`
	BackfillBatchSize   int           `env:"BACKFILL_BATCH_SIZE" envDefault:"100"`

	// Approval predictor
	TagMatchWeight float64 `env:"TAG_MATCH_WEIGHT" envDefault:"0.05"`

	// Database pool
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"2"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

// Load reads configuration from the environment. A .env file is loaded first
// if present; real environment variables win over file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	return cfg, nil
}
