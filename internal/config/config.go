package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the top-level application configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	LLM        LLMConfig        `yaml:"llm"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Diagnosis  DiagnosisConfig  `yaml:"diagnosis"`
	HTTP       HTTPConfig       `yaml:"http"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN            string `yaml:"dsn"`
	MaxOpenConns   int    `yaml:"max_open_conns"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-query timeout.
func (d DatabaseConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// RedisConfig holds snapshot cache settings.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
	Enabled    bool   `yaml:"enabled"`
}

// TTL returns the cache entry lifetime.
func (r RedisConfig) TTL() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}

// LLMConfig holds text generation service settings. The service is prose-only;
// no decision in the pipeline may depend on its output.
type LLMConfig struct {
	Endpoint       string  `yaml:"endpoint"`
	Model          string  `yaml:"model"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
	Burst          int     `yaml:"burst"`
	Required       bool    `yaml:"required"`
}

// Timeout returns the per-call timeout.
func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// APIKey resolves the API key from the configured environment variable.
func (l LLMConfig) APIKey() string {
	if l.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(l.APIKeyEnv)
}

// AggregatorConfig holds snapshot aggregation settings.
type AggregatorConfig struct {
	LookbackDays    int    `yaml:"lookback_days"`     // source query horizon
	MinGroupRecords int    `yaml:"min_group_records"` // sparsity threshold
	Workers         int    `yaml:"workers"`           // bounded group parallelism
	Strategy        string `yaml:"strategy"`          // replace | merge
}

// DiagnosisConfig overrides the deterministic thresholds of the diagnosis
// pipeline. Zero values fall back to the built-in defaults.
type DiagnosisConfig struct {
	ShortageTurnoverDays  float64 `yaml:"shortage_turnover_days"`
	ExcessTurnoverDays    float64 `yaml:"excess_turnover_days"`
	AcoasHighPct          float64 `yaml:"acoas_high_pct"`
	AcoasLowPct           float64 `yaml:"acoas_low_pct"`
	CtrLowPct             float64 `yaml:"ctr_low_pct"`
	ConversionLowFactor   float64 `yaml:"conversion_low_factor"`
	EffectiveDailyRevenue float64 `yaml:"effective_daily_revenue"`
	MinCompleteness       float64 `yaml:"min_completeness"`
	MaxMissingDays        int     `yaml:"max_missing_days"`
	MaxRegenerations      int     `yaml:"max_regenerations"`
}

// HTTPConfig holds the service listen settings.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:            "postgres://localhost:5432/sellerpulse?sslmode=disable",
			MaxOpenConns:   8,
			TimeoutSeconds: 10,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			TTLSeconds: 600,
			Enabled:    false,
		},
		LLM: LLMConfig{
			Endpoint:       "https://api.openai.com/v1/chat/completions",
			Model:          "gpt-4o-mini",
			APIKeyEnv:      "SELLERPULSE_LLM_KEY",
			TimeoutSeconds: 30,
			RatePerSecond:  2,
			Burst:          4,
			Required:       false,
		},
		Aggregator: AggregatorConfig{
			LookbackDays:    60,
			MinGroupRecords: 3,
			Workers:         4,
			Strategy:        "merge",
		},
		HTTP: HTTPConfig{
			Addr: ":8087",
		},
	}
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Aggregator.LookbackDays < 30 {
		return fmt.Errorf("aggregator lookback_days %d below minimum window span 30", c.Aggregator.LookbackDays)
	}
	if c.Aggregator.MinGroupRecords < 1 {
		return fmt.Errorf("aggregator min_group_records must be >= 1")
	}
	if c.Aggregator.Workers < 1 {
		return fmt.Errorf("aggregator workers must be >= 1")
	}
	switch c.Aggregator.Strategy {
	case "replace", "merge":
	default:
		return fmt.Errorf("unknown aggregator strategy %q", c.Aggregator.Strategy)
	}
	return nil
}
