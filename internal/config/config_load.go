package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		BotName:  "Clementine",
		LogLevel: "info",
		QA: QAConfig{
			ClientName:     "clementine",
			TimeoutSeconds: 500,
		},
		Context: ContextConfig{
			Min: 50,
			Max: 250,
		},
		Database: DatabaseConfig{
			Mode: "sqlite",
			Path: "clementine.db",
		},
		Tracing: TracingConfig{
			Protocol:    "http",
			ServiceName: "clementine",
		},
	}
}

// Load reads config from a JSON5 file, overlays env vars, and normalizes
// out-of-range window and timeout values. A missing file is not an error:
// defaults plus env are enough to run.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			cfg.normalize()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.normalize()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			} else {
				slog.Warn("ignoring non-numeric env value", "var", key, "value", v)
			}
		}
	}

	envStr("SLACK_BOT_TOKEN", &c.Slack.BotToken)
	envStr("SLACK_APP_TOKEN", &c.Slack.AppToken)

	envStr("QA_BASE_URL", &c.QA.BaseURL)
	envStr("QA_API_TOKEN", &c.QA.APIToken)
	envInt("QA_TIMEOUT_SECONDS", &c.QA.TimeoutSeconds)

	envInt("CONTEXT_MIN", &c.Context.Min)
	envInt("CONTEXT_MAX", &c.Context.Max)
	envStr("MODEL_OVERRIDE", &c.ModelOverride)

	envStr("CLEMENTINE_BOT_NAME", &c.BotName)
	envStr("CLEMENTINE_LOG_LEVEL", &c.LogLevel)
	envStr("CLEMENTINE_DB_MODE", &c.Database.Mode)
	envStr("CLEMENTINE_DB_PATH", &c.Database.Path)
	envStr("CLEMENTINE_POSTGRES_DSN", &c.Database.PostgresDSN)
	envStr("CLEMENTINE_PROMPTS_DIR", &c.Prompts.Dir)

	envStr("CLEMENTINE_TRACING_ENDPOINT", &c.Tracing.Endpoint)
	envStr("CLEMENTINE_TRACING_PROTOCOL", &c.Tracing.Protocol)
	if v := os.Getenv("CLEMENTINE_TRACING_ENABLED"); v != "" {
		c.Tracing.Enabled = v == "true" || v == "1"
	}

	// Postgres DSN in the environment implies postgres mode unless the mode
	// was set explicitly.
	if c.Database.PostgresDSN != "" && os.Getenv("CLEMENTINE_DB_MODE") == "" {
		c.Database.Mode = "postgres"
	}
}

// normalize pulls window and timeout settings back inside their ceilings.
// Each adjustment is logged once so operators can see what was rejected.
func (c *Config) normalize() {
	def := Default()

	if c.Context.Min < 1 || c.Context.Min > ContextMinCeiling {
		slog.Warn("context.min out of range, using default",
			"value", c.Context.Min, "default", def.Context.Min)
		c.Context.Min = def.Context.Min
	}
	if c.Context.Max > ContextMaxCeiling {
		slog.Warn("context.max above ceiling, using default",
			"value", c.Context.Max, "default", def.Context.Max)
		c.Context.Max = def.Context.Max
	}
	if c.Context.Max < c.Context.Min {
		slog.Warn("context.max below context.min, raising to min",
			"max", c.Context.Max, "min", c.Context.Min)
		c.Context.Max = c.Context.Min
	}

	if c.QA.TimeoutSeconds <= 0 || c.QA.TimeoutSeconds > TimeoutCeilingSec {
		slog.Warn("qa.timeout_seconds out of range, using default",
			"value", c.QA.TimeoutSeconds, "default", def.QA.TimeoutSeconds)
		c.QA.TimeoutSeconds = def.QA.TimeoutSeconds
	}

	if c.QA.ClientName == "" {
		c.QA.ClientName = def.QA.ClientName
	}
	if c.BotName == "" {
		c.BotName = def.BotName
	}

	// Whitespace-only override means no override.
	c.ModelOverride = strings.TrimSpace(c.ModelOverride)
}

// Save writes the config to a JSON file. Slack and QA tokens are written as
// given; keep config files out of version control.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// ExpandHome replaces leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
