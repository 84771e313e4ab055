package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the main configuration for grab.
type Config struct {
	InstallID string        `toml:"install_id" yaml:"install_id" json:"install_id"`
	BaseDir   string        `toml:"base_dir" yaml:"base_dir" json:"base_dir"`
	LogDir    string        `toml:"log_dir" yaml:"log_dir" json:"log_dir"`
	LogLevel  string        `toml:"log_level" yaml:"log_level" json:"log_level"` // debug, info, warn, error
	Policy    PolicyConfig  `toml:"policy" yaml:"policy" json:"policy"`
	Cache     CacheConfig   `toml:"cache" yaml:"cache" json:"cache"`
	S3        S3Config      `toml:"s3" yaml:"s3" json:"s3"`
	Monitor   MonitorConfig `toml:"monitor" yaml:"monitor" json:"monitor"`
	Server    ServerConfig  `toml:"server" yaml:"server" json:"server"`
}

// PolicyConfig describes where the version policy lives and how it is evaluated.
// Durations are strings accepted by time.ParseDuration ("10s", "6h").
type PolicyConfig struct {
	// URL scheme selects the source: http(s)://, s3://bucket/key or file:///path.
	URL              string `toml:"url" yaml:"url" json:"url"`
	Timeout          string `toml:"timeout,omitempty" yaml:"timeout,omitempty" json:"timeout,omitempty"`
	MaxCacheAge      string `toml:"max_cache_age,omitempty" yaml:"max_cache_age,omitempty" json:"max_cache_age,omitempty"`
	StaleAllowAfter  string `toml:"stale_allow_after,omitempty" yaml:"stale_allow_after,omitempty" json:"stale_allow_after,omitempty"`
	ForceUpdateGrace string `toml:"force_update_grace,omitempty" yaml:"force_update_grace,omitempty" json:"force_update_grace,omitempty"`
	RecheckAfter     string `toml:"recheck_after,omitempty" yaml:"recheck_after,omitempty" json:"recheck_after,omitempty"`
}

// CacheConfig represents configuration for the policy cache.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type CacheConfig struct {
	Type string `toml:"type" yaml:"type" json:"type"`                               // "file" (default), "sqlite" or "memory"
	Dir  string `toml:"dir,omitempty" yaml:"dir,omitempty" json:"dir,omitempty"` // used by file and sqlite
}

// S3Config holds settings for s3:// policy URLs. Empty credentials fall back
// to the default AWS credential chain.
type S3Config struct {
	Region          string `toml:"region,omitempty" yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint        string `toml:"endpoint,omitempty" yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	AccessKeyID     string `toml:"access_key_id,omitempty" yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `toml:"secret_access_key,omitempty" yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
	UsePathStyle    bool   `toml:"use_path_style,omitempty" yaml:"use_path_style,omitempty" json:"use_path_style,omitempty"`
}

// MonitorConfig controls background re-checks for long-running hosts.
type MonitorConfig struct {
	Interval   string `toml:"interval,omitempty" yaml:"interval,omitempty" json:"interval,omitempty"`
	WatchCache bool   `toml:"watch_cache" yaml:"watch_cache" json:"watch_cache"`
}

// ServerConfig is used by the development policy server.
type ServerConfig struct {
	Addr       string `toml:"addr,omitempty" yaml:"addr,omitempty" json:"addr,omitempty"`
	PolicyFile string `toml:"policy_file,omitempty" yaml:"policy_file,omitempty" json:"policy_file,omitempty"`
}

// Default durations applied when a field is empty.
const (
	DefaultTimeout         = 10 * time.Second
	DefaultMaxCacheAge     = 24 * time.Hour
	DefaultMonitorInterval = 15 * time.Minute
	DefaultServerAddr      = "127.0.0.1:8787"
)

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(installID, baseDir, cacheDir, policyURL string) *Config {
	return &Config{
		InstallID: installID,
		BaseDir:   baseDir,
		LogDir:    filepath.Join(baseDir, "log"),
		LogLevel:  "info",
		Policy: PolicyConfig{
			URL:     policyURL,
			Timeout: DefaultTimeout.String(),
		},
		Cache: CacheConfig{
			Type: "file",
			Dir:  cacheDir,
		},
		Monitor: MonitorConfig{
			Interval:   DefaultMonitorInterval.String(),
			WatchCache: true,
		},
	}
}

// TimeoutDuration returns the fetch timeout, or DefaultTimeout if unset.
func (p PolicyConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration("policy.timeout", p.Timeout, DefaultTimeout)
}

// MaxCacheAgeDuration returns the max cache age, or DefaultMaxCacheAge if unset.
func (p PolicyConfig) MaxCacheAgeDuration() (time.Duration, error) {
	return parseDuration("policy.max_cache_age", p.MaxCacheAge, DefaultMaxCacheAge)
}

// StaleAllowAfterDuration returns the configured value, or 0 to use the controller default.
func (p PolicyConfig) StaleAllowAfterDuration() (time.Duration, error) {
	return parseDuration("policy.stale_allow_after", p.StaleAllowAfter, 0)
}

// ForceUpdateGraceDuration returns the configured value, or 0 to use the controller default.
func (p PolicyConfig) ForceUpdateGraceDuration() (time.Duration, error) {
	return parseDuration("policy.force_update_grace", p.ForceUpdateGrace, 0)
}

// RecheckAfterDuration returns the configured value, or 0 to use the controller default.
func (p PolicyConfig) RecheckAfterDuration() (time.Duration, error) {
	return parseDuration("policy.recheck_after", p.RecheckAfter, 0)
}

// IntervalDuration returns the monitor tick interval, or DefaultMonitorInterval if unset.
func (m MonitorConfig) IntervalDuration() (time.Duration, error) {
	return parseDuration("monitor.interval", m.Interval, DefaultMonitorInterval)
}

func parseDuration(field, s string, def time.Duration) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", field, s)
	}
	return d, nil
}

// ApplyEnvOverrides lets GRAB_POLICY_URL and GRAB_CACHE_DIR take precedence
// over the file.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("GRAB_POLICY_URL"); v != "" {
		c.Policy.URL = v
	}
	if v := os.Getenv("GRAB_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path. The format is
// chosen by extension: .yaml/.yml, .json, otherwise TOML.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg = &Config{}
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil && err != io.EOF {
			return nil, fmt.Errorf("reading config from %s: decode YAML: %w", path, err)
		}
	case ".json":
		cfg = &Config{}
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("reading config from %s: decode JSON: %w", path, err)
		}
	default:
		m := &Manager{}
		cfg, err = m.Read(f)
		if err != nil {
			return nil, fmt.Errorf("reading config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
