// Package config provides configuration for the assistants link service.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ModeMock swaps the hosted clients for in-process mocks.
const ModeMock = "MOCK"

// Config holds the service configuration.
type Config struct {
	// Hosted API
	OpenAIAPIKey  string `mapstructure:"openai_api_key"`
	OpenAIBaseURL string `mapstructure:"openai_base_url"`

	// Database
	DatabaseURL string `mapstructure:"database_url"`

	// Server settings
	APIPrefixV1 string `mapstructure:"api_prefix_v1"`
	BaseURL     string `mapstructure:"base_url"`
	HTTPPort    int    `mapstructure:"http_port"`

	AppEnv  string `mapstructure:"app_env"`
	AppMode string `mapstructure:"app_mode"`

	// Logging
	LogLevel string `mapstructure:"log_level"`

	// Models
	DefaultModel   string `mapstructure:"default_model"`
	EvaluatorModel string `mapstructure:"evaluator_model"`

	// Evaluator
	EvaluatorHistory int  `mapstructure:"evaluator_history"`
	EvaluatorEnabled bool `mapstructure:"evaluator_enabled"`

	// Timeouts
	AgentTimeoutMs      int `mapstructure:"agent_timeout_ms"`
	AgentPollIntervalMs int `mapstructure:"agent_poll_interval_ms"`

	PolicyFile string `mapstructure:"policy_file"`

	v *viper.Viper
}

var defaults = map[string]any{
	"openai_api_key":         "",
	"openai_base_url":        "",
	"database_url":           "file:assistants.db?cache=shared&mode=rwc",
	"api_prefix_v1":          "/api/v1",
	"base_url":               "http://localhost:8000",
	"http_port":              8000,
	"app_env":                "development",
	"app_mode":               "",
	"log_level":              "info",
	"default_model":          "gpt-3.5-turbo",
	"evaluator_model":        "gpt-3.5-turbo",
	"evaluator_history":      2,
	"evaluator_enabled":      true,
	"agent_timeout_ms":       120000,
	"agent_poll_interval_ms": 500,
	"policy_file":            "",
}

// Load builds the configuration from defaults, the optional config file at
// path and the environment. Environment variables win over the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in defaults, ignoring file and environment.
func Default() *Config {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	cfg, _ := decode(v)
	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.APIPrefixV1 = "/" + strings.Trim(cfg.APIPrefixV1, "/")
	cfg.v = v
	return &cfg, nil
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.AppMode != ModeMock && c.OpenAIAPIKey == "" {
		return errors.New("OPENAI_API_KEY is required unless APP_MODE=MOCK")
	}
	if c.HTTPPort <= 0 {
		return fmt.Errorf("invalid HTTP_PORT %d", c.HTTPPort)
	}
	if c.EvaluatorHistory < 0 {
		return fmt.Errorf("invalid EVALUATOR_HISTORY %d", c.EvaluatorHistory)
	}
	return nil
}

// Mock reports whether the hosted clients should be mocked.
func (c *Config) Mock() bool {
	return c.AppMode == ModeMock
}

// CorePrefix is the mount point of the core route group.
func (c *Config) CorePrefix() string {
	return strings.TrimSuffix(c.APIPrefixV1, "/") + "/core"
}

// AgentTimeout bounds a single chat turn.
func (c *Config) AgentTimeout() time.Duration {
	return time.Duration(c.AgentTimeoutMs) * time.Millisecond
}

// AgentPollInterval is the run status poll interval.
func (c *Config) AgentPollInterval() time.Duration {
	return time.Duration(c.AgentPollIntervalMs) * time.Millisecond
}

// ConfigFile returns the config file in use, if any.
func (c *Config) ConfigFile() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

// Watch calls onChange with the reloaded configuration whenever the config
// file changes. It is a no-op without a config file.
func (c *Config) Watch(onChange func(next *Config, err error)) {
	if c.ConfigFile() == "" {
		return
	}
	v := c.v
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		onChange(decode(v))
	})
	v.WatchConfig()
}
