package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AlertsConfig holds maintenance alert rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based maintenance alert.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "risk_next_6m_pct > 30",
	// "risk_horizon_pct >= 50", "km_overdue > 0", "part == battery".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Default values for the server configuration.
const (
	DefaultHTTPPort      = 8080
	DefaultLogLevel      = "info"
	DefaultChartDir      = "assets/generated"
	DefaultChartURL      = "/assets/generated"
	DefaultMinPoints     = 51
	DefaultMaxPoints     = 1001
	DefaultPoints        = 201
	DefaultStoreTTL      = 30 * time.Minute
	DefaultStoreCapacity = 500
	DefaultFeedInterval  = 5 * time.Second
)

// Config holds the server configuration parsed from the `server:` section of
// config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, chart files and WebSocket feed listen on.
	HTTPPort int `yaml:"http_port"`

	// GRPCPort is the port of the gRPC health service. 0 disables it.
	GRPCPort int `yaml:"grpc_port"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// Auth configures how the server authenticates REST and gRPC clients.
	Auth AuthConfig `yaml:"auth"`

	// Charts controls PNG chart generation for projections.
	Charts ChartsConfig `yaml:"charts"`

	// Projection bounds the request parameters accepted by the API.
	Projection ProjectionConfig `yaml:"projection"`

	// Store controls in-memory retention of recent projections.
	Store StoreConfig `yaml:"store"`

	// Feed controls the WebSocket broadcast of recent projections.
	Feed FeedConfig `yaml:"feed"`

	// Alerts holds rule definitions and webhook delivery targets.
	Alerts AlertsConfig `yaml:"alerts"`
}

// AuthConfig controls client authentication.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header (and gRPC metadata key) to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// ChartsConfig controls chart rendering.
type ChartsConfig struct {
	// Enabled turns chart generation on. Default: true.
	Enabled bool `yaml:"enabled"`

	// Dir is where PNG files are written and served from.
	Dir string `yaml:"dir"`

	// URLPrefix is the public path under which Dir is served.
	URLPrefix string `yaml:"url_prefix"`
}

// ProjectionConfig bounds the point count a client may request.
type ProjectionConfig struct {
	MinPoints     int `yaml:"min_points"`
	MaxPoints     int `yaml:"max_points"`
	DefaultPoints int `yaml:"default_points"`
}

// StoreConfig controls recent-projection retention.
type StoreConfig struct {
	// TTL is how long a projection stays listed after it was computed.
	TTL time.Duration `yaml:"ttl"`

	// Capacity is the maximum number of projections kept; the oldest is
	// dropped first.
	Capacity int `yaml:"capacity"`
}

// FeedConfig controls the WebSocket feed.
type FeedConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML config data on top of the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config pre-populated with default values. It is also the
// configuration used when no config file exists.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			LogLevel: DefaultLogLevel,
			Charts: ChartsConfig{
				Enabled:   true,
				Dir:       DefaultChartDir,
				URLPrefix: DefaultChartURL,
			},
			Projection: ProjectionConfig{
				MinPoints:     DefaultMinPoints,
				MaxPoints:     DefaultMaxPoints,
				DefaultPoints: DefaultPoints,
			},
			Store: StoreConfig{
				TTL:      DefaultStoreTTL,
				Capacity: DefaultStoreCapacity,
			},
			Feed: FeedConfig{
				Interval: DefaultFeedInterval,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	if s.GRPCPort < 0 || s.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d is out of range [0, 65535]", s.GRPCPort)
	}
	if s.GRPCPort != 0 && s.GRPCPort == s.HTTPPort {
		return fmt.Errorf("server.grpc_port and server.http_port must differ")
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", s.LogLevel)
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	if s.Charts.Enabled && s.Charts.Dir == "" {
		return fmt.Errorf("server.charts.dir is required when charts are enabled")
	}
	p := s.Projection
	if p.MinPoints < 2 {
		return fmt.Errorf("server.projection.min_points must be at least 2")
	}
	if p.MaxPoints < p.MinPoints {
		return fmt.Errorf("server.projection.max_points %d is below min_points %d", p.MaxPoints, p.MinPoints)
	}
	if p.DefaultPoints < p.MinPoints || p.DefaultPoints > p.MaxPoints {
		return fmt.Errorf("server.projection.default_points %d is outside [%d, %d]", p.DefaultPoints, p.MinPoints, p.MaxPoints)
	}
	if s.Store.TTL <= 0 {
		return fmt.Errorf("server.store.ttl must be positive")
	}
	if s.Store.Capacity <= 0 {
		return fmt.Errorf("server.store.capacity must be positive")
	}
	if s.Feed.Interval <= 0 {
		return fmt.Errorf("server.feed.interval must be positive")
	}
	for i, r := range s.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("server.alerts.rules[%d]: name is required", i)
		}
		if r.Condition == "" {
			return fmt.Errorf("server.alerts.rules[%d] %q: condition is required", i, r.Name)
		}
		switch r.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("server.alerts.rules[%d] %q: unknown severity %q", i, r.Name, r.Severity)
		}
	}
	for i, w := range s.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("server.alerts.webhooks[%d]: unknown type %q", i, w.Type)
		}
	}
	return nil
}
