// Package config loads the server configuration from YAML by
// environment name, with ${VAR} substitution for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the stacmosaic server configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	STAC    STACConfig    `yaml:"stac"`
	Mosaic  MosaicConfig  `yaml:"mosaic"`
	Cache   CacheConfig   `yaml:"cache"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// STACConfig holds catalog connection settings. AlternateHrefKey, if
// set, names the alternate asset href entry that overrides the
// primary (e.g. for signed or regional URLs).
type STACConfig struct {
	URL              string `yaml:"url"`
	AlternateHrefKey string `yaml:"alternate_href_key"`
}

// MosaicConfig holds compositing settings.
type MosaicConfig struct {
	Concurrency     int `yaml:"concurrency"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	DefaultLimit    int `yaml:"default_limit"`
	DefaultMaxItems int `yaml:"default_max_items"`
}

// CacheConfig holds the collection-metadata cache settings. Item
// search results are never cached.
type CacheConfig struct {
	CollectionTTLSec int  `yaml:"collection_ttl_sec"`
	CollectionSize   int  `yaml:"collection_maxsize"`
	Disable          bool `yaml:"disable"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Mosaic.Concurrency <= 0 {
		c.Mosaic.Concurrency = 4
	}
	if c.Mosaic.ReadTimeoutSec <= 0 {
		c.Mosaic.ReadTimeoutSec = 30
	}
	if c.Mosaic.DefaultLimit <= 0 {
		c.Mosaic.DefaultLimit = 10
	}
	if c.Mosaic.DefaultMaxItems <= 0 {
		c.Mosaic.DefaultMaxItems = 100
	}
	if c.Cache.CollectionTTLSec <= 0 {
		c.Cache.CollectionTTLSec = 300
	}
	if c.Cache.CollectionSize <= 0 {
		c.Cache.CollectionSize = 512
	}
	if c.Cache.Disable {
		c.Cache.CollectionTTLSec = 0
		c.Cache.CollectionSize = 0
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.STAC.URL == "" {
		return fmt.Errorf("stac.url is required")
	}
	if !strings.HasPrefix(c.STAC.URL, "http://") && !strings.HasPrefix(c.STAC.URL, "https://") {
		return fmt.Errorf("stac.url must be an http(s) URL, got %q", c.STAC.URL)
	}
	if c.Mosaic.DefaultLimit > c.Mosaic.DefaultMaxItems {
		return fmt.Errorf(
			"mosaic.default_limit (%d) must not exceed mosaic.default_max_items (%d)",
			c.Mosaic.DefaultLimit, c.Mosaic.DefaultMaxItems,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
