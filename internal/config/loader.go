package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "hourstack.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "HOURSTACK_PORT")
	setString(&cfg.Server.CORSOrigin, "HOURSTACK_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "HOURSTACK_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "HOURSTACK_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "HOURSTACK_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "HOURSTACK_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "HOURSTACK_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setInt64(&cfg.Cache.L1MaxSizeMB, "HOURSTACK_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.SummaryTTL, "HOURSTACK_CACHE_SUMMARY_TTL")
	setString(&cfg.Logging.Level, "HOURSTACK_LOG_LEVEL")
	setString(&cfg.Logging.Service, "HOURSTACK_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "HOURSTACK_LOG_ASYNC")
	setFloat64(&cfg.Rate.RequestsPerSecond, "HOURSTACK_RATE_RPS")
	setInt(&cfg.Rate.Burst, "HOURSTACK_RATE_BURST")
	setInt(&cfg.Breaker.MaxFailures, "HOURSTACK_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "HOURSTACK_BREAKER_TIMEOUT")
	setString(&cfg.Billing.WebhookSecret, "HOURSTACK_BILLING_WEBHOOK_SECRET")
	setDuration(&cfg.Cycle.ResetInterval, "HOURSTACK_CYCLE_RESET_INTERVAL")
	setString(&cfg.OTel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTel.Enabled, "HOURSTACK_OTEL_ENABLED")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Cycle.ResetInterval <= 0 {
		return errors.New("cycle.reset_interval must be positive")
	}
	for _, p := range cfg.Billing.Plans {
		if p.Code == "" || p.PriceRef == "" {
			return fmt.Errorf("billing.plans: code and price_ref are required (got %+v)", p)
		}
		if p.HoursMonthly < 0 {
			return fmt.Errorf("billing.plans[%s]: hours_monthly must be >= 0", p.Code)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
