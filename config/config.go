package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. LIBRARIAN_API_BASE_URL
const EnvPrefix = "LIBRARIAN"

// Load loads the configuration from file and environment. A missing config
// file is not an error; defaults and environment apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".librarian"))
		}

		// Check /etc
		v.AddConfigPath("/etc/librarian/")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case configPath != "" && (errors.Is(err, os.ErrNotExist) || errors.As(err, &notFound)):
			return nil, fmt.Errorf("config file not found: %w", err)
		case errors.As(err, &notFound):
		default:
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values. Every key needs a default
// so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.base_url", "https://localhost:8443")
	v.SetDefault("api.mode", ModeHTTP)
	v.SetDefault("api.timeout", "10s")

	// TLS defaults
	v.SetDefault("tls.truststore_path", "")
	v.SetDefault("tls.truststore_password", "")

	// Pool defaults
	v.SetDefault("pool.min_workers", 2)
	v.SetDefault("pool.max_workers", 50)
	v.SetDefault("pool.queue_size", 200)
	v.SetDefault("pool.shutdown_grace", "10s")
	v.SetDefault("pool.shutdown_force", "5s")

	// Auth defaults
	v.SetDefault("auth.identifier", "")
	v.SetDefault("auth.secret", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	switch cfg.API.Mode {
	case ModeHTTP:
		u, err := url.Parse(cfg.API.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("api.base_url must be an absolute URL: %q", cfg.API.BaseURL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("api.base_url scheme must be http or https: %s", u.Scheme)
		}
	case ModeMock:
	default:
		return fmt.Errorf("invalid api.mode: %s (must be '%s' or '%s')", cfg.API.Mode, ModeHTTP, ModeMock)
	}

	if cfg.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}

	if cfg.Pool.MinWorkers < 0 || cfg.Pool.QueueSize < 0 {
		return fmt.Errorf("pool sizes must not be negative")
	}
	if cfg.Pool.MaxWorkers > 0 && cfg.Pool.MaxWorkers < cfg.Pool.MinWorkers {
		return fmt.Errorf("pool.max_workers (%d) must not be below pool.min_workers (%d)", cfg.Pool.MaxWorkers, cfg.Pool.MinWorkers)
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	for name, expression := range cfg.Filter {
		if strings.TrimSpace(expression) == "" {
			return fmt.Errorf("filter %q has an empty expression", name)
		}
	}

	return nil
}
