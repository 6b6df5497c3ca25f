package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sellerpulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_OverridesOnTopOfDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: postgres://db:5432/prod
  max_open_conns: 20
aggregator:
  lookback_days: 90
  strategy: replace
redis:
  enabled: true
  ttl_seconds: 120
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://db:5432/prod", cfg.Database.DSN)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, 90, cfg.Aggregator.LookbackDays)
	assert.Equal(t, "replace", cfg.Aggregator.Strategy)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Redis.TTL())

	// Untouched keys keep their defaults.
	assert.Equal(t, 4, cfg.Aggregator.Workers)
	assert.Equal(t, 10*time.Second, cfg.Database.Timeout())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "database: [not: a: mapping")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config YAML")
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"short lookback", "aggregator:\n  lookback_days: 14\n", "lookback_days"},
		{"bad strategy", "aggregator:\n  strategy: rewrite\n", "strategy"},
		{"zero workers", "aggregator:\n  workers: 0\n", "workers"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLLMConfig_APIKeyFromEnv(t *testing.T) {
	t.Setenv("SELLERPULSE_TEST_KEY", "sk-test")

	l := LLMConfig{APIKeyEnv: "SELLERPULSE_TEST_KEY"}
	assert.Equal(t, "sk-test", l.APIKey())

	l.APIKeyEnv = ""
	assert.Equal(t, "", l.APIKey())
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().validate())
}
