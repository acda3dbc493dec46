package config

import (
	"fmt"
	"time"
)

// Ceilings applied to window and timeout settings regardless of what the file
// or environment asks for. A misconfigured deployment should degrade to
// something sane, not page entire channel histories on every question.
const (
	ContextMinCeiling = 1000
	ContextMaxCeiling = 10000
	TimeoutCeilingSec = 3600
)

// Config is the process-wide configuration. It is built once at startup
// (file, then env overrides, then normalization) and passed into component
// constructors; nothing mutates it after Load returns.
type Config struct {
	BotName  string `json:"bot_name"`
	LogLevel string `json:"log_level"`

	Slack    SlackConfig    `json:"slack"`
	QA       QAConfig       `json:"qa"`
	Context  ContextConfig  `json:"context"`
	Database DatabaseConfig `json:"database"`
	Prompts  PromptsConfig  `json:"prompts"`
	Tracing  TracingConfig  `json:"tracing"`

	// ModelOverride, when non-empty, is sent as the model on every QA request.
	// Empty defers model selection to the QA service.
	ModelOverride string `json:"model_override"`
}

// SlackConfig holds the Slack credentials for Socket Mode.
type SlackConfig struct {
	BotToken string `json:"bot_token"` // xoxb-...
	AppToken string `json:"app_token"` // xapp-...
	Debug    bool   `json:"debug"`
}

// QAConfig points at the downstream question-answering service.
type QAConfig struct {
	BaseURL        string `json:"base_url"`
	APIToken       string `json:"api_token"`
	ClientName     string `json:"client_name"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// ContextConfig bounds the per-room context window size. Every stored
// context_size must satisfy Min <= size <= Max.
type ContextConfig struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// DatabaseConfig selects the settings backend.
// Mode "sqlite" (default) uses a single local file; "postgres" uses a DSN.
type DatabaseConfig struct {
	Mode        string `json:"mode"`
	Path        string `json:"path"`
	PostgresDSN string `json:"postgres_dsn,omitempty"`
}

// PromptsConfig points at an optional directory overriding the embedded
// default prompts.
type PromptsConfig struct {
	Dir string `json:"dir,omitempty"`
}

// TracingConfig controls OTLP trace export.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	Protocol    string `json:"protocol,omitempty"` // "http" or "grpc"
	Endpoint    string `json:"endpoint,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
	Insecure    bool   `json:"insecure,omitempty"`
}

// QATimeout returns the QA request deadline as a duration.
func (c *Config) QATimeout() time.Duration {
	return time.Duration(c.QA.TimeoutSeconds) * time.Second
}

// HasSlackCredentials reports whether both Slack tokens are present.
func (c *Config) HasSlackCredentials() bool {
	return c.Slack.BotToken != "" && c.Slack.AppToken != ""
}

// Validate checks settings that cannot be normalized away.
func (c *Config) Validate() error {
	if c.QA.BaseURL == "" {
		return fmt.Errorf("qa.base_url is required")
	}
	switch c.Database.Mode {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required in sqlite mode")
		}
	case "postgres":
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("database.postgres_dsn is required in postgres mode")
		}
	default:
		return fmt.Errorf("database.mode must be \"sqlite\" or \"postgres\", got %q", c.Database.Mode)
	}
	return nil
}
