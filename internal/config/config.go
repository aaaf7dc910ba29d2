// Package config provides configuration for the hearing service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultModel is used when neither a template nor the environment names a model.
	DefaultModel = "gpt-5-nano"

	// Store backends.
	StoreBackendFile   = "file"
	StoreBackendSQLite = "sqlite"
)

// Config holds the hearing service configuration.
type Config struct {
	// Server settings
	HTTPPort int `yaml:"http_port,omitempty"`

	// Storage
	DataDir      string `yaml:"data_dir,omitempty"`
	StoreBackend string `yaml:"store_backend,omitempty"`
	DatabaseURL  string `yaml:"database_url,omitempty"`

	// LLM provider
	LLMBaseURL string        `yaml:"llm_base_url,omitempty"`
	LLMAPIKey  string        `yaml:"-"`
	LLMModel   string        `yaml:"llm_model,omitempty"`
	LLMTimeout time.Duration `yaml:"-"`
	Mode       string        `yaml:"mode,omitempty"`

	// Relay
	CharDelay time.Duration `yaml:"-"`

	// WebSocket relay
	WSWriteTimeout   time.Duration `yaml:"-"`
	WSReadTimeout    time.Duration `yaml:"-"`
	WSMaxMessageSize int64         `yaml:"ws_max_message_size,omitempty"`

	// Summaries
	SummaryOnSave  bool          `yaml:"summary_on_save"`
	SummaryTimeout time.Duration `yaml:"-"`

	// Policy
	ModelPolicyFile string `yaml:"model_policy_file,omitempty"`

	// Logging
	LogLevel  string `yaml:"log_level,omitempty"`
	LogPretty bool   `yaml:"log_pretty"`
}

// Load loads configuration from environment variables. When HEARING_CONFIG
// names a YAML file, its values are applied first and the environment wins.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:         3000,
		DataDir:          "data",
		StoreBackend:     StoreBackendFile,
		DatabaseURL:      "file:hearing.db?cache=shared&mode=rwc",
		LLMBaseURL:       "https://api.openai.com",
		LLMTimeout:       300 * time.Second,
		CharDelay:        5 * time.Millisecond,
		WSWriteTimeout:   10 * time.Second,
		WSReadTimeout:    60 * time.Second,
		WSMaxMessageSize: 1 << 20,
		SummaryOnSave:    true,
		SummaryTimeout:   120 * time.Second,
		LogLevel:         "info",
	}

	if path := os.Getenv("HEARING_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.HTTPPort = getEnvInt("HTTP_PORT", cfg.HTTPPort)
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.StoreBackend = strings.ToLower(getEnv("STORE_BACKEND", cfg.StoreBackend))
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.LLMBaseURL = getEnv("LLM_BASE_URL", cfg.LLMBaseURL)
	cfg.LLMAPIKey = getEnv("OPENAI_API_KEY", cfg.LLMAPIKey)
	cfg.LLMModel = getEnv("LLM_MODEL", cfg.LLMModel)
	cfg.LLMTimeout = getEnvDuration("LLM_TIMEOUT_MS", cfg.LLMTimeout)
	cfg.Mode = getEnv("HEARING_MODE", cfg.Mode)
	cfg.CharDelay = getEnvDuration("CHAT_CHAR_DELAY_MS", cfg.CharDelay)
	cfg.WSWriteTimeout = getEnvDuration("WS_WRITE_TIMEOUT_MS", cfg.WSWriteTimeout)
	cfg.WSReadTimeout = getEnvDuration("WS_READ_TIMEOUT_MS", cfg.WSReadTimeout)
	cfg.WSMaxMessageSize = int64(getEnvInt("WS_MAX_MESSAGE_SIZE", int(cfg.WSMaxMessageSize)))
	cfg.SummaryOnSave = getEnvBool("SUMMARY_ON_SAVE", cfg.SummaryOnSave)
	cfg.SummaryTimeout = getEnvDuration("SUMMARY_TIMEOUT_MS", cfg.SummaryTimeout)
	cfg.ModelPolicyFile = getEnv("MODEL_POLICY_FILE", cfg.ModelPolicyFile)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogPretty = getEnvBool("LOG_PRETTY", cfg.LogPretty)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have a closed set of options.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreBackendFile, StoreBackendSQLite:
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port %d", c.HTTPPort)
	}
	return nil
}

// DefaultLLMModel returns the process-wide model, falling back to DefaultModel.
func (c *Config) DefaultLLMModel() string {
	if c.LLMModel != "" {
		return c.LLMModel
	}
	return DefaultModel
}

// fileDurations are the millisecond keys of the YAML file, named like
// their environment variables.
type fileDurations struct {
	LLMTimeoutMS     *int `yaml:"llm_timeout_ms"`
	CharDelayMS      *int `yaml:"chat_char_delay_ms"`
	WSWriteTimeoutMS *int `yaml:"ws_write_timeout_ms"`
	WSReadTimeoutMS  *int `yaml:"ws_read_timeout_ms"`
	SummaryTimeoutMS *int `yaml:"summary_timeout_ms"`
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	var d fileDurations
	if err := yaml.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	for _, v := range []struct {
		ms  *int
		dst *time.Duration
	}{
		{d.LLMTimeoutMS, &c.LLMTimeout},
		{d.CharDelayMS, &c.CharDelay},
		{d.WSWriteTimeoutMS, &c.WSWriteTimeout},
		{d.WSReadTimeoutMS, &c.WSReadTimeout},
		{d.SummaryTimeoutMS, &c.SummaryTimeout},
	} {
		if v.ms == nil {
			continue
		}
		if *v.ms < 0 {
			return fmt.Errorf("config file %s: negative duration %d", path, *v.ms)
		}
		*v.dst = time.Duration(*v.ms) * time.Millisecond
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration reads a millisecond count.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if ms, err := strconv.Atoi(val); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}
