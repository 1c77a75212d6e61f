package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lmp-scraper/internal/logger"
	"lmp-scraper/internal/model"
	"lmp-scraper/internal/oasis"

	"gopkg.in/yaml.v3"
)

const DefaultTimezone = "US/Pacific"

// Config is the on-disk configuration shape (YAML).
type Config struct {
	// Optional JSON node catalog. Relative paths are resolved against the
	// config file directory first.
	NodesFile string        `yaml:"nodes_file"`
	OASIS     OASISConfig   `yaml:"oasis"`
	Scrape    ScrapeConfig  `yaml:"scrape"`
	Logging   logger.Config `yaml:"logging"`
	API       APIConfig     `yaml:"api"`
}

type OASISConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	RequestDelay time.Duration `yaml:"request_delay"`
	Cache        CacheConfig   `yaml:"cache"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// ScrapeConfig holds the defaults for a range run. Node and dates are
// usually left empty here and passed on the command line.
type ScrapeConfig struct {
	Node              string `yaml:"node"`
	Market            string `yaml:"market"`
	StartDate         string `yaml:"start_date"`
	EndDate           string `yaml:"end_date"`
	StorePath         string `yaml:"store_path"`
	TZIn              string `yaml:"tz_in"`
	TZQuery           string `yaml:"tz_query"`
	MaxAttempts       int    `yaml:"max_attempts"`
	CacheContinuously bool   `yaml:"cache_continuously"`
}

type APIConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// MaxAttempts caps what a single API request may ask for.
	MaxAttempts int `yaml:"max_attempts"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		OASIS: OASISConfig{
			BaseURL:      oasis.DefaultBaseURL,
			Timeout:      60 * time.Second,
			RequestDelay: model.DefaultRequestDelay,
			Cache:        CacheConfig{TTL: time.Hour},
		},
		Scrape: ScrapeConfig{
			StorePath:         ".",
			TZIn:              DefaultTimezone,
			TZQuery:           DefaultTimezone,
			MaxAttempts:       model.DefaultMaxAttempts,
			CacheContinuously: true,
		},
		Logging: logger.Config{Level: logger.DefaultLevel},
		API: APIConfig{
			Port:           "8080",
			AllowedOrigins: []string{"*"},
			MaxAttempts:    model.DefaultMaxAttempts,
		},
	}
}

// Load reads path over the defaults and validates the result. An empty path
// yields the validated defaults.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads config over the defaults, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if c.NodesFile != "" && !filepath.IsAbs(c.NodesFile) {
		// Prefer the config file directory, fall back to cwd.
		cand := filepath.Join(filepath.Dir(path), c.NodesFile)
		if _, err := os.Stat(cand); err == nil {
			c.NodesFile = cand
		}
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	var problems []error
	if u, err := url.Parse(c.OASIS.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Errorf("oasis.base_url %q is not an absolute URL", c.OASIS.BaseURL))
	}
	if c.OASIS.Timeout <= 0 {
		problems = append(problems, errors.New("oasis.timeout must be positive"))
	}
	if c.OASIS.RequestDelay < 0 {
		problems = append(problems, errors.New("oasis.request_delay must not be negative"))
	}
	if c.OASIS.Cache.Enabled && c.OASIS.Cache.TTL <= 0 {
		problems = append(problems, errors.New("oasis.cache.ttl must be positive when the cache is enabled"))
	}

	if c.Scrape.Market != "" {
		if _, err := model.ParseMarket(c.Scrape.Market); err != nil {
			problems = append(problems, fmt.Errorf("scrape.market: %w", err))
		}
	}
	for key, tz := range map[string]string{"scrape.tz_in": c.Scrape.TZIn, "scrape.tz_query": c.Scrape.TZQuery} {
		if _, err := time.LoadLocation(tz); err != nil || tz == "" {
			problems = append(problems, fmt.Errorf("%s: unknown timezone %q", key, tz))
		}
	}
	if c.Scrape.MaxAttempts < 1 {
		problems = append(problems, errors.New("scrape.max_attempts must be >= 1"))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}

	if c.API.Port == "" {
		problems = append(problems, errors.New("api.port is required"))
	}
	if c.API.MaxAttempts < 1 {
		problems = append(problems, errors.New("api.max_attempts must be >= 1"))
	}
	return errors.Join(problems...)
}

// MergeScrape overlays non-zero fields from override onto base.
// Used to apply API request fields over the configured defaults.
func MergeScrape(base, override ScrapeConfig) ScrapeConfig {
	out := base
	if override.Node != "" {
		out.Node = override.Node
	}
	if override.Market != "" {
		out.Market = override.Market
	}
	if override.StartDate != "" {
		out.StartDate = override.StartDate
	}
	if override.EndDate != "" {
		out.EndDate = override.EndDate
	}
	if override.TZIn != "" {
		out.TZIn = override.TZIn
	}
	if override.TZQuery != "" {
		out.TZQuery = override.TZQuery
	}
	if override.MaxAttempts != 0 {
		out.MaxAttempts = override.MaxAttempts
	}
	// StorePath and CacheContinuously are left to the operator.
	return out
}
