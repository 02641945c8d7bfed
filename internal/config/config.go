package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/solar-dashboard-service/internal/dataset"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	// DataDir, when set, is the only directory searched for the source files.
	DataDir string
	// DataCandidates is the resolved search order handed to the loader.
	DataCandidates []string
	DataFiles      []dataset.CountryFile

	RequestTimeout time.Duration

	CacheBackend string // "in_memory" or "memcached"
	CacheTTL     time.Duration
	WarmCache    bool
	WarmInterval time.Duration

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int
	// Breaker settings guarding the memcached backend.
	MemcachedBreakerFailures int
	MemcachedBreakerTimeout  time.Duration

	RateLimitRPS   int
	RateLimitBurst int

	StatsTopN int

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Data struct {
		Dir          string            `yaml:"dir"`
		FallbackDirs []string          `yaml:"fallback_dirs"`
		Files        map[string]string `yaml:"files"`
	} `yaml:"data"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Cache struct {
		Backend      string `yaml:"backend"`
		TTL          string `yaml:"ttl"`
		Warm         *bool  `yaml:"warm"`
		WarmInterval string `yaml:"warm_interval"`
		Memcached    struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
			// BreakerFailures consecutive errors open the breaker for BreakerTimeout.
			BreakerFailures int    `yaml:"breaker_failures"`
			BreakerTimeout  string `yaml:"breaker_timeout"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Dashboard struct {
		TopN int `yaml:"top_n"`
	} `yaml:"dashboard"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) relative to
// the working directory. Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFile(filepath.Join(cwd, "config", env+".yaml"))
}

// LoadFile reads configuration from an explicit YAML path and applies env overrides
// (SOLAR_DATA_DIR, CACHE_BACKEND, MEMCACHED_ADDRS).
func LoadFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}
	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.DataDir = strings.TrimSpace(os.Getenv("SOLAR_DATA_DIR"))
	if cfg.DataDir == "" {
		cfg.DataDir = strings.TrimSpace(fc.Data.Dir)
	}
	if cfg.DataDir != "" {
		cfg.DataCandidates = []string{cfg.DataDir}
	} else {
		exe, _ := os.Executable()
		cfg.DataCandidates = append(dataset.DefaultCandidateDirs(exe), fc.Data.FallbackDirs...)
	}
	files, err := resolveFiles(fc.Data.Files)
	if err != nil {
		return nil, err
	}
	cfg.DataFiles = files

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 10*time.Second)

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 1*time.Hour)
	cfg.WarmCache = true
	if fc.Cache.Warm != nil {
		cfg.WarmCache = *fc.Cache.Warm
	}
	cfg.WarmInterval = parseDurationOrZero(fc.Cache.WarmInterval, 0)

	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}
	cfg.MemcachedBreakerFailures = fc.Cache.Memcached.BreakerFailures
	if cfg.MemcachedBreakerFailures <= 0 {
		cfg.MemcachedBreakerFailures = 5
	}
	cfg.MemcachedBreakerTimeout = parseDuration(fc.Cache.Memcached.BreakerTimeout, 30*time.Second)

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 50
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 100
	}

	cfg.StatsTopN = fc.Dashboard.TopN
	if cfg.StatsTopN <= 0 {
		cfg.StatsTopN = 10
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveFiles applies filename overrides to the default country set.
// Keys outside the default set are rejected; order stays that of DefaultCountryFiles.
func resolveFiles(overrides map[string]string) ([]dataset.CountryFile, error) {
	known := make(map[string]struct{}, len(dataset.DefaultCountryFiles))
	for _, cf := range dataset.DefaultCountryFiles {
		known[cf.Key] = struct{}{}
	}
	for key := range overrides {
		if _, ok := known[key]; !ok {
			return nil, fmt.Errorf("data.files: unknown country key %q", key)
		}
	}
	out := make([]dataset.CountryFile, len(dataset.DefaultCountryFiles))
	for i, cf := range dataset.DefaultCountryFiles {
		if name := strings.TrimSpace(overrides[cf.Key]); name != "" {
			cf.File = name
		}
		out[i] = cf
	}
	return out, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
// Used for parsing duration fields from YAML config with safe fallback to defaults.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
func validate(cfg *Config) error {
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
		// valid
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	if cfg.WarmInterval < 0 {
		return fmt.Errorf("cache.warm_interval must not be negative")
	}
	if len(cfg.DataCandidates) == 0 {
		return fmt.Errorf("no data directory candidates configured")
	}
	return nil
}
