package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultServerURL      = "http://localhost:8080"
	DefaultTimeout        = 15 * time.Second
	DefaultMaxAttempts    = 4
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 10 * time.Second
	DefaultHeader         = "x-api-key"
	DefaultFormat         = "table"
)

// Config is the partcast CLI configuration. Every field can be overridden by
// a command-line flag.
type Config struct {
	Remote   RemoteConfig   `yaml:"remote"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// RemoteConfig holds the settings used to talk to partcast-server.
type RemoteConfig struct {
	// ServerURL is the base URL of partcast-server, e.g. http://localhost:8080.
	ServerURL string `yaml:"server_url"`

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration `yaml:"timeout"`

	Auth  AuthConfig  `yaml:"auth"`
	TLS   TLSConfig   `yaml:"tls"`
	Retry RetryConfig `yaml:"retry"`
}

// AuthConfig specifies how the CLI authenticates to the server.
type AuthConfig struct {
	// Mode is one of: apikey | bearer | mtls | none.
	Mode string `yaml:"mode"`

	// API key fields, used when Mode == "apikey".
	Header string `yaml:"header"`
	KeyEnv string `yaml:"key_env"`

	// TokenEnv names the variable holding the token when Mode == "bearer".
	TokenEnv string `yaml:"token_env"`

	// mTLS fields, used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`
}

// Key returns the API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// TLSConfig holds TLS dial options.
type TLSConfig struct {
	// InsecureSkipVerify disables certificate verification. Development only.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// RetryConfig controls retries of transient failures.
type RetryConfig struct {
	// MaxAttempts includes the first attempt. 1 disables retries.
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// DefaultsConfig supplies projection flag defaults.
type DefaultsConfig struct {
	Climate string `yaml:"climate"`
	Points  int    `yaml:"points"`
	Format  string `yaml:"format"`
}

// Load reads and parses the YAML config file at path.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Defaults(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Defaults returns a Config pre-populated with default values.
func Defaults() *Config {
	return &Config{
		Remote: RemoteConfig{
			ServerURL: DefaultServerURL,
			Timeout:   DefaultTimeout,
			Auth: AuthConfig{
				Mode:   "none",
				Header: DefaultHeader,
			},
			Retry: RetryConfig{
				MaxAttempts:    DefaultMaxAttempts,
				InitialBackoff: DefaultInitialBackoff,
				MaxBackoff:     DefaultMaxBackoff,
			},
		},
		Defaults: DefaultsConfig{
			Format: DefaultFormat,
		},
	}
}

// Validate checks structural constraints. It is exported so flag overrides
// can be re-checked after they are applied.
func Validate(cfg *Config) error {
	r := cfg.Remote
	if r.ServerURL == "" {
		return fmt.Errorf("remote.server_url is required")
	}
	if r.Timeout <= 0 {
		return fmt.Errorf("remote.timeout must be positive")
	}
	if r.Retry.MaxAttempts < 1 {
		return fmt.Errorf("remote.retry.max_attempts must be at least 1")
	}
	if r.Retry.InitialBackoff <= 0 || r.Retry.MaxBackoff < r.Retry.InitialBackoff {
		return fmt.Errorf("remote.retry: need 0 < initial_backoff <= max_backoff")
	}
	switch r.Auth.Mode {
	case "apikey", "bearer", "none", "":
	case "mtls":
		if r.Auth.CertFile == "" || r.Auth.KeyFile == "" {
			return fmt.Errorf("remote.auth: mtls requires cert_file and key_file")
		}
	default:
		return fmt.Errorf("remote.auth: unknown mode %q", r.Auth.Mode)
	}
	switch cfg.Defaults.Format {
	case "table", "json":
	default:
		return fmt.Errorf("defaults.format: unknown format %q", cfg.Defaults.Format)
	}
	if cfg.Defaults.Points < 0 {
		return fmt.Errorf("defaults.points must not be negative")
	}
	return nil
}
