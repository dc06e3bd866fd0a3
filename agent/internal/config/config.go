package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultShipInterval = 10 * time.Second
	DefaultBufferSize   = 1000
	DefaultAPIKeyHeader = "x-api-key"
)

// Source types understood by the agent.
const (
	SourceGauge = "gauge"
	SourceCSV   = "csv"
)

// Config is the top-level agent configuration.
type Config struct {
	Agent AgentConfig `yaml:"agent"`
}

// AgentConfig holds all agent-side settings.
type AgentConfig struct {
	// ServerURL is the base URL of fitpoint-server, e.g. http://localhost:8080.
	ServerURL string `yaml:"server_url"`

	// SessionID is the server session that receives the rows. When empty
	// the agent creates a session named SessionName on startup.
	SessionID   string `yaml:"session_id"`
	SessionName string `yaml:"session_name"`

	// PollInterval controls how often each source is read.
	PollInterval time.Duration `yaml:"poll_interval"`

	// ShipInterval controls how often buffered rows are posted to the server.
	ShipInterval time.Duration `yaml:"ship_interval"`

	// BufferSize is the maximum number of rows held in memory while the
	// server is unreachable.
	BufferSize int `yaml:"buffer_size"`

	Sources []Source `yaml:"sources"`

	// ServerAuth configures how the agent authenticates to fitpoint-server.
	ServerAuth AuthConfig `yaml:"server_auth"`
}

// Source describes one rig data feed.
type Source struct {
	ID string `yaml:"id"`

	// Type is gauge or csv.
	Type string `yaml:"type"`

	// Endpoint is the gauge URL serving Prometheus text format.
	Endpoint string `yaml:"endpoint"`

	// PressureMetric and StrokesMetric name the gauge families to read.
	// StrokesMetric is optional.
	PressureMetric string `yaml:"pressure_metric"`
	StrokesMetric  string `yaml:"strokes_metric"`

	// Path is the CSV file written by a rig data logger.
	Path string `yaml:"path"`

	Auth AuthConfig `yaml:"auth"`
	TLS  TLSConfig  `yaml:"tls"`
}

// AuthConfig specifies an authentication mode. Secrets are read from the
// environment variables named here, never from the file itself.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	Header string `yaml:"header"`
	KeyEnv string `yaml:"key_env"`

	TokenEnv string `yaml:"token_env"`

	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// EffectiveHeader returns Header, or DefaultAPIKeyHeader when unset.
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return DefaultAPIKeyHeader
}

// TLSConfig holds per-source TLS dial options.
type TLSConfig struct {
	// InsecureSkipVerify disables certificate verification. Internal CAs only.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// Load reads and parses the YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			SessionName:  "live FIT",
			PollInterval: DefaultPollInterval,
			ShipInterval: DefaultShipInterval,
			BufferSize:   DefaultBufferSize,
		},
	}
}

func validate(cfg *Config) error {
	a := cfg.Agent
	if a.ServerURL == "" {
		return fmt.Errorf("agent.server_url is required")
	}
	if a.PollInterval <= 0 {
		return fmt.Errorf("agent.poll_interval must be positive")
	}
	if a.ShipInterval <= 0 {
		return fmt.Errorf("agent.ship_interval must be positive")
	}
	if a.BufferSize <= 0 {
		return fmt.Errorf("agent.buffer_size must be positive")
	}
	switch a.ServerAuth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("agent.server_auth: unknown mode %q", a.ServerAuth.Mode)
	}

	seen := make(map[string]bool, len(a.Sources))
	for i, src := range a.Sources {
		if src.ID == "" {
			return fmt.Errorf("sources[%d]: id is required", i)
		}
		if seen[src.ID] {
			return fmt.Errorf("sources[%d]: duplicate id %q", i, src.ID)
		}
		seen[src.ID] = true

		switch src.Type {
		case SourceGauge:
			if src.Endpoint == "" {
				return fmt.Errorf("sources[%d] %q: endpoint is required", i, src.ID)
			}
			if src.PressureMetric == "" {
				return fmt.Errorf("sources[%d] %q: pressure_metric is required", i, src.ID)
			}
		case SourceCSV:
			if src.Path == "" {
				return fmt.Errorf("sources[%d] %q: path is required", i, src.ID)
			}
		default:
			return fmt.Errorf("sources[%d] %q: unknown type %q", i, src.ID, src.Type)
		}

		switch src.Auth.Mode {
		case "mtls", "apikey", "bearer", "basic", "none", "":
		default:
			return fmt.Errorf("sources[%d] %q: unknown auth mode %q", i, src.ID, src.Auth.Mode)
		}
	}
	return nil
}
