package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	TLS     TLSConfig     `mapstructure:"tls"`
	Pool    PoolConfig    `mapstructure:"pool"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig selects and addresses the backend
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Mode    string        `mapstructure:"mode"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TLSConfig points at an optional trust store for the backend's certificate
type TLSConfig struct {
	TrustStorePath     string `mapstructure:"truststore_path"`
	TrustStorePassword string `mapstructure:"truststore_password"`
}

// PoolConfig sizes the background worker pool
type PoolConfig struct {
	MinWorkers    int           `mapstructure:"min_workers"`
	MaxWorkers    int           `mapstructure:"max_workers"`
	QueueSize     int           `mapstructure:"queue_size"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
	ShutdownForce time.Duration `mapstructure:"shutdown_force"`
}

// AuthConfig holds default login credentials
type AuthConfig struct {
	Identifier string `mapstructure:"identifier"`
	Secret     string `mapstructure:"secret"`
}

// FilterConfig contains named filter expressions
type FilterConfig map[string]string

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}

// Backend modes
const (
	ModeHTTP = "http"
	ModeMock = "mock"
)
