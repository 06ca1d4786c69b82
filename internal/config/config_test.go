package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadNoFiles(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load([]string{})
	require.NoError(t, err)
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := loadNoFiles(t)

	assert.Equal(t, "notebook", cfg.InitialQuery)
	assert.Equal(t, "laptops", cfg.FallbackQuery)
	assert.Equal(t, 4000*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 16, cfg.MaxProducts)
	assert.Equal(t, "BRL", cfg.Currency)
	assert.False(t, cfg.Chaos)
	assert.Equal(t, ":memory:", cfg.HistoryDB)
	assert.Empty(t, cfg.MetricsAddr)

	assert.Equal(t, "https://dummyjson.com/products/search", cfg.Fetch.Endpoint)
	assert.Equal(t, 200*time.Millisecond, cfg.Fetch.DelayMin)
	assert.Equal(t, 2000*time.Millisecond, cfg.Fetch.DelayMax)
	assert.Equal(t, 8000*time.Millisecond, cfg.Fetch.Timeout)
	assert.Equal(t, 5.0, cfg.Fetch.RateLimit)
	assert.Equal(t, 2, cfg.Fetch.RateBurst)

	assert.NoError(t, cfg.Validate())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MARKETMON_INITIAL_QUERY", "  camera  ")
	t.Setenv("MARKETMON_CHAOS", "true")
	t.Setenv("MARKETMON_FETCH_TIMEOUT", "3s")
	t.Setenv("MARKETMON_CURRENCY", "usd")

	cfg := loadNoFiles(t)
	assert.Equal(t, "camera", cfg.InitialQuery)
	assert.True(t, cfg.Chaos)
	assert.Equal(t, 3*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, "USD", cfg.Currency)
}

func TestYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marketmon.yaml")
	yaml := `
initial_query: headphones
max_products: 8
fetch:
  delay_min: 0s
  delay_max: 50ms
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load([]string{path})
	require.NoError(t, err)
	assert.Equal(t, "headphones", cfg.InitialQuery)
	assert.Equal(t, 8, cfg.MaxProducts)
	assert.Equal(t, time.Duration(0), cfg.Fetch.DelayMin)
	assert.Equal(t, 50*time.Millisecond, cfg.Fetch.DelayMax)
	assert.Equal(t, "laptops", cfg.FallbackQuery, "unset keys keep defaults")
}

func TestFallbackFilesMayBeMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("currency: usd\n"), 0o644))

	cfg, err := load([]string{filepath.Join(t.TempDir(), "marketmon.yaml"), path}, false)
	require.NoError(t, err)
	assert.Equal(t, "USD", cfg.Currency)
}

func TestExplicitConfigFileMustExist(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	_, err := Load([]string{missing})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty endpoint", func(c *Config) { c.Fetch.Endpoint = "" }},
		{"hostless endpoint", func(c *Config) { c.Fetch.Endpoint = "/products/search" }},
		{"ftp endpoint", func(c *Config) { c.Fetch.Endpoint = "ftp://example.com/x" }},
		{"empty fallback", func(c *Config) { c.FallbackQuery = "" }},
		{"negative delay", func(c *Config) { c.Fetch.DelayMin = -time.Millisecond }},
		{"max not above min", func(c *Config) { c.Fetch.DelayMax = c.Fetch.DelayMin }},
		{"zero timeout", func(c *Config) { c.Fetch.Timeout = 0 }},
		{"negative rate", func(c *Config) { c.Fetch.RateLimit = -1 }},
		{"zero tick", func(c *Config) { c.TickInterval = 0 }},
		{"zero products", func(c *Config) { c.MaxProducts = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadNoFiles(t)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestResolveDataDir(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := &Config{DataDir: "~/.marketmon"}
	dir, err := cfg.ResolveDataDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".marketmon"), dir)

	cfg.DataDir = "/var/lib/marketmon"
	dir, err = cfg.ResolveDataDir()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/marketmon", dir)
}

func TestHistoryPath(t *testing.T) {
	cfg := &Config{DataDir: "/data"}

	for in, want := range map[string]string{
		"":             ":memory:",
		":memory:":     ":memory:",
		"/abs/hist.db": "/abs/hist.db",
		"history.db":   "/data/history.db",
	} {
		cfg.HistoryDB = in
		got, err := cfg.HistoryPath()
		require.NoError(t, err)
		assert.Equal(t, want, got, "HistoryDB=%q", in)
	}
}
