// Package config loads marketmon settings from defaults, YAML files and
// MARKETMON_-prefixed environment variables. Command-line flags are applied
// on top by the CLI.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// EnvPrefix prefixes every environment variable, e.g. MARKETMON_FETCH_TIMEOUT.
const EnvPrefix = "MARKETMON"

// Config holds the complete application configuration.
type Config struct {
	InitialQuery  string        `default:"notebook" usage:"Query searched on startup"`
	FallbackQuery string        `default:"laptops" usage:"Query used when the search box is empty"`
	TickInterval  time.Duration `default:"4s" usage:"How often the last-update counter refreshes"`
	MaxProducts   int           `default:"16" usage:"Maximum products rendered per result"`
	Currency      string        `default:"BRL" usage:"ISO 4217 code prices are rendered in"`
	Chaos         bool          `default:"false" usage:"Start with chaos mode on"`
	DataDir       string        `default:"~/.marketmon" usage:"Directory for logs, events and history"`
	HistoryDB     string        `default:":memory:" usage:"Cycle history database (:memory: or a path relative to the data dir)"`
	MetricsAddr   string        `default:"" usage:"Serve Prometheus metrics on this address (disabled when empty)"`
	Verbose       bool          `default:"false" usage:"Debug-level diagnostic log"`
	Fetch         FetchConfig
}

// FetchConfig controls the outbound search request.
type FetchConfig struct {
	Endpoint  string        `default:"https://dummyjson.com/products/search" usage:"Product search endpoint"`
	DelayMin  time.Duration `default:"200ms" usage:"Lower bound of the simulated network delay"`
	DelayMax  time.Duration `default:"2s" usage:"Upper bound (exclusive) of the simulated network delay"`
	Timeout   time.Duration `default:"8s" usage:"Hard budget for the real request"`
	RateLimit float64       `default:"5" usage:"Outbound requests per second (0 disables limiting)"`
	RateBurst int           `default:"2" usage:"Outbound request burst"`
}

// DefaultFiles are the YAML files consulted, first match wins.
func DefaultFiles() []string {
	files := []string{"marketmon.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".marketmon", "config.yaml"))
	}
	return files
}

// Load reads defaults, the first existing file in files, then the
// environment. A nil files slice means DefaultFiles, any of which may be
// absent; explicitly named files must exist.
func Load(files []string) (*Config, error) {
	if files == nil {
		return load(DefaultFiles(), false)
	}
	return load(files, true)
}

func load(files []string, required bool) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:          EnvPrefix,
		SkipFlags:          true,
		AllowUnknownEnvs:   true,
		FailOnFileNotFound: required,
		Files:              files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
			".yml":  aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	cfg.InitialQuery = strings.TrimSpace(cfg.InitialQuery)
	cfg.FallbackQuery = strings.TrimSpace(cfg.FallbackQuery)
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Fetch.Endpoint)
	if c.Fetch.Endpoint == "" || err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.Errorf("invalid fetch endpoint %q", c.Fetch.Endpoint)
	}
	if c.FallbackQuery == "" {
		return errors.New("fallback query must not be empty")
	}
	if c.Fetch.DelayMin < 0 {
		return errors.Errorf("delay min must be >= 0, got %s", c.Fetch.DelayMin)
	}
	if c.Fetch.DelayMax <= c.Fetch.DelayMin {
		return errors.Errorf("delay max (%s) must exceed delay min (%s)", c.Fetch.DelayMax, c.Fetch.DelayMin)
	}
	if c.Fetch.Timeout <= 0 {
		return errors.Errorf("timeout must be positive, got %s", c.Fetch.Timeout)
	}
	if c.Fetch.RateLimit < 0 {
		return errors.Errorf("rate limit must be >= 0, got %v", c.Fetch.RateLimit)
	}
	if c.TickInterval <= 0 {
		return errors.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	if c.MaxProducts <= 0 {
		return errors.Errorf("max products must be positive, got %d", c.MaxProducts)
	}
	return nil
}

// ResolveDataDir returns DataDir with a leading "~" expanded.
func (c *Config) ResolveDataDir() (string, error) {
	dir := c.DataDir
	if dir == "" {
		dir = "~/.marketmon"
	}
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "resolve home directory")
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	return dir, nil
}

// HistoryPath returns the history database location. Relative paths are
// resolved against the data directory.
func (c *Config) HistoryPath() (string, error) {
	p := c.HistoryDB
	if p == "" || p == ":memory:" || filepath.IsAbs(p) {
		if p == "" {
			p = ":memory:"
		}
		return p, nil
	}
	dir, err := c.ResolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, p), nil
}
