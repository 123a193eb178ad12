// ABOUTME: Configuration loading for torrentbutler
// ABOUTME: Loads TOML config with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Matrix       MatrixConfig       `toml:"matrix"`
	Transmission TransmissionConfig `toml:"transmission"`
	Tracker      TrackerConfig      `toml:"tracker"`
	Extractor    ExtractorConfig    `toml:"extractor"`
	History      HistoryConfig      `toml:"history"`
	Bridge       BridgeConfig       `toml:"bridge"`
	Logging      LoggingConfig      `toml:"logging"`
}

type MatrixConfig struct {
	Homeserver  string   `toml:"homeserver"`
	UserID      string   `toml:"user_id"`
	AccessToken string   `toml:"access_token"`
	// AllowedUsers is the static set of senders the bot answers to.
	// Everything else is dropped silently. An empty list means nobody.
	AllowedUsers []string `toml:"allowed_users"`
}

type TransmissionConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// TrackerConfig configures the one private tracker whose .torrent links
// need the pass key appended.
type TrackerConfig struct {
	Host    string `toml:"host"`
	PassKey string `toml:"pass_key"`
}

type ExtractorConfig struct {
	// Mode selects how pages are fetched for link extraction:
	// "http" for a plain GET, "browser" for a headless render.
	Mode       string        `toml:"mode"`
	Timeout    time.Duration `toml:"-"`
	TimeoutRaw string        `toml:"timeout"`
}

type HistoryConfig struct {
	// Path of the command ledger database. Empty disables the ledger.
	Path string `toml:"path"`
}

type BridgeConfig struct {
	TypingIndicator bool `toml:"typing_indicator"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Load reads config from the given path, expanding environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Transmission.Port == 0 {
		cfg.Transmission.Port = 9091
	}
	if cfg.Extractor.Mode == "" {
		cfg.Extractor.Mode = "http"
	}
	if cfg.Extractor.Timeout == 0 {
		cfg.Extractor.Timeout = 15 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func parseDurations(cfg *Config) error {
	if cfg.Extractor.TimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Extractor.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing extractor.timeout %q: %w", cfg.Extractor.TimeoutRaw, err)
		}
		cfg.Extractor.Timeout = d
	}
	return nil
}

// Validate checks that required config fields are present and valid.
func (c *Config) Validate() error {
	if c.Matrix.Homeserver == "" {
		return fmt.Errorf("matrix.homeserver is required")
	}
	if _, err := url.Parse(c.Matrix.Homeserver); err != nil {
		return fmt.Errorf("matrix.homeserver is not a valid URL: %w", err)
	}
	if c.Matrix.UserID == "" {
		return fmt.Errorf("matrix.user_id is required")
	}
	if c.Matrix.AccessToken == "" {
		return fmt.Errorf("matrix.access_token is required")
	}
	if len(c.Matrix.AllowedUsers) == 0 {
		return fmt.Errorf("matrix.allowed_users must name at least one user")
	}
	if c.Transmission.Host == "" {
		return fmt.Errorf("transmission.host is required")
	}
	if c.Extractor.Mode != "http" && c.Extractor.Mode != "browser" {
		return fmt.Errorf("extractor.mode must be %q or %q", "http", "browser")
	}
	return nil
}
