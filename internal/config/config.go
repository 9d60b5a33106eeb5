// Copyright 2025 Email Triage Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads and validates the application configuration from a
// YAML file and environment variables. Environment variables take precedence
// over file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	// ErrMissingRequiredField is returned when a required configuration field is missing
	ErrMissingRequiredField = errors.New("missing required configuration field")
	// ErrInvalidConfigValue is returned when a configuration value is invalid
	ErrInvalidConfigValue = errors.New("invalid configuration value")
)

// Config represents the complete application configuration
type Config struct {
	AI       AIConfig       `mapstructure:"ai"`
	Server   ServerConfig   `mapstructure:"server"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Feedback FeedbackConfig `mapstructure:"feedback"`
	Model    ModelConfig    `mapstructure:"model"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AIConfig contains settings for the remote completion service.
// The endpoint is OpenAI-compatible; DeepSeek is the default provider.
type AIConfig struct {
	APIKey              string  `mapstructure:"api_key"`
	BaseURL             string  `mapstructure:"base_url"`
	Model               string  `mapstructure:"model"`
	TimeoutSeconds      int     `mapstructure:"timeout_seconds"`
	ClassifyPromptLimit int     `mapstructure:"classify_prompt_limit"`
	GeneratePromptLimit int     `mapstructure:"generate_prompt_limit"`
	ClassifyTemperature float64 `mapstructure:"classify_temperature"`
	GenerateTemperature float64 `mapstructure:"generate_temperature"`
	ClassifyMaxTokens   int     `mapstructure:"classify_max_tokens"`
	GenerateMaxTokens   int     `mapstructure:"generate_max_tokens"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port          string `mapstructure:"port"`
	MaxTextLength int    `mapstructure:"max_text_length"`
}

// UploadConfig contains file upload limits
type UploadConfig struct {
	MaxFileSize       int64    `mapstructure:"max_file_size"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
}

// FeedbackConfig contains feedback storage configuration
type FeedbackConfig struct {
	StorageType string `mapstructure:"storage_type"`
	FilePath    string `mapstructure:"file_path"`
	DBPath      string `mapstructure:"db_path"`
	RecentLimit int    `mapstructure:"recent_limit"`
}

// ModelConfig contains the optional statistical model artifact location
type ModelConfig struct {
	ArtifactDir string `mapstructure:"artifact_dir"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed for field '%s': %s", e.Field, e.Message)
}

// LoadOptions contains options for configuration loading
type LoadOptions struct {
	ConfigPath       string
	ValidateRequired bool
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	return LoadWithOptions(LoadOptions{
		ConfigPath:       configPath,
		ValidateRequired: true,
	})
}

// LoadWithOptions loads configuration with additional options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	setConfigFile(v, opts.ConfigPath)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("EMAIL_TRIAGE")

	// A missing config file is fine; defaults plus env vars are a complete
	// configuration on their own.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	setEnvironmentMappings(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if opts.ValidateRequired {
		if err := validateConfig(&config); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Remote completion service defaults
	v.SetDefault("ai.base_url", "https://api.deepseek.com/v1")
	v.SetDefault("ai.model", "deepseek-chat")
	v.SetDefault("ai.timeout_seconds", 30)
	v.SetDefault("ai.classify_prompt_limit", 1000)
	v.SetDefault("ai.generate_prompt_limit", 500)
	v.SetDefault("ai.classify_temperature", 0.1)
	v.SetDefault("ai.generate_temperature", 0.7)
	v.SetDefault("ai.classify_max_tokens", 10)
	v.SetDefault("ai.generate_max_tokens", 300)

	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.max_text_length", 10000)

	// Upload defaults
	v.SetDefault("upload.max_file_size", 2*1024*1024)
	v.SetDefault("upload.allowed_extensions", []string{".txt", ".pdf"})

	// Feedback defaults
	v.SetDefault("feedback.storage_type", "file")
	v.SetDefault("feedback.file_path", "./data/feedback.jsonl")
	v.SetDefault("feedback.db_path", "./data/feedback.db")
	v.SetDefault("feedback.recent_limit", 10)

	// Model artifact defaults (absence of the artifacts is a valid state)
	v.SetDefault("model.artifact_dir", "./models")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// setConfigFile sets the configuration file path with fallback locations
func setConfigFile(v *viper.Viper, configPath string) {
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		v.SetConfigFile(envPath)
		return
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
}

// setEnvironmentMappings sets explicit environment variable mappings
func setEnvironmentMappings(v *viper.Viper) {
	envMappings := map[string]string{
		"AI_BASE_URL":        "ai.base_url",
		"AI_MODEL":           "ai.model",
		"FEEDBACK_DB_PATH":   "feedback.db_path",
		"FEEDBACK_FILE":      "feedback.file_path",
		"MODEL_ARTIFACT_DIR": "model.artifact_dir",
		"LOG_LEVEL":          "logging.level",
		"LOG_FORMAT":         "logging.format",
		"LOG_OUTPUT":         "logging.output",
		"PORT":               "server.port",
	}

	for envVar, configKey := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			v.Set(configKey, value)
		}
	}

	// DEEPSEEK_API_KEY wins over OPENAI_API_KEY when both are present.
	for _, envVar := range []string{"OPENAI_API_KEY", "DEEPSEEK_API_KEY"} {
		if value := os.Getenv(envVar); value != "" {
			v.Set("ai.api_key", value)
		}
	}
}

// validateConfig validates the configuration for required fields and valid values
func validateConfig(config *Config) error {
	var errs []ValidationError

	// A missing API key is allowed: the service then runs on the rule-based
	// classifier and reply templates alone.

	if config.AI.BaseURL == "" {
		errs = append(errs, ValidationError{
			Field:   "ai.base_url",
			Message: "completion service base URL is required",
		})
	}

	if config.AI.TimeoutSeconds <= 0 {
		errs = append(errs, ValidationError{
			Field:   "ai.timeout_seconds",
			Message: "timeout_seconds must be greater than 0",
		})
	}

	if config.AI.ClassifyPromptLimit <= 0 || config.AI.GeneratePromptLimit <= 0 {
		errs = append(errs, ValidationError{
			Field:   "ai.classify_prompt_limit",
			Message: "prompt limits must be greater than 0",
		})
	}

	if config.AI.ClassifyTemperature < 0 || config.AI.ClassifyTemperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "ai.classify_temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if config.AI.GenerateTemperature < 0 || config.AI.GenerateTemperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "ai.generate_temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if config.Server.MaxTextLength <= 0 {
		errs = append(errs, ValidationError{
			Field:   "server.max_text_length",
			Message: "max_text_length must be greater than 0",
		})
	}

	if config.Upload.MaxFileSize <= 0 {
		errs = append(errs, ValidationError{
			Field:   "upload.max_file_size",
			Message: "max_file_size must be greater than 0",
		})
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, config.Logging.Level) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("log level must be one of: %s", strings.Join(validLogLevels, ", ")),
		})
	}

	validLogFormats := []string{"json", "console"}
	if !contains(validLogFormats, config.Logging.Format) {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("log format must be one of: %s", strings.Join(validLogFormats, ", ")),
		})
	}

	validStorageTypes := []string{"file", "sqlite"}
	if !contains(validStorageTypes, config.Feedback.StorageType) {
		errs = append(errs, ValidationError{
			Field:   "feedback.storage_type",
			Message: fmt.Sprintf("storage type must be one of: %s", strings.Join(validStorageTypes, ", ")),
		})
	}

	switch config.Feedback.StorageType {
	case "file":
		if config.Feedback.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "feedback.file_path",
				Message: "feedback file path is required for file storage",
			})
		}
	case "sqlite":
		if config.Feedback.DBPath == "" {
			errs = append(errs, ValidationError{
				Field:   "feedback.db_path",
				Message: "feedback database path is required for sqlite storage",
			})
		}
	}

	if config.Feedback.RecentLimit <= 0 {
		errs = append(errs, ValidationError{
			Field:   "feedback.recent_limit",
			Message: "recent_limit must be greater than 0",
		})
	}

	if len(errs) > 0 {
		var errorMessages []string
		for _, err := range errs {
			errorMessages = append(errorMessages, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errorMessages, "\n"))
	}

	return nil
}

// Timeout returns the remote-call timeout as a time.Duration.
func (c *AIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MaskSensitiveValues returns a copy of the config with sensitive values masked
func (c *Config) MaskSensitiveValues() *Config {
	masked := *c

	if masked.AI.APIKey != "" {
		masked.AI.APIKey = maskValue(masked.AI.APIKey)
	}

	return &masked
}

// maskValue masks sensitive values, showing only the first 8 characters
func maskValue(value string) string {
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:8] + strings.Repeat("*", len(value)-8)
}

// contains checks if a slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// WatchConfig enables configuration hot-reloading for development
func WatchConfig(configPath string, callback func(*Config)) error {
	v := viper.New()

	setConfigFile(v, configPath)
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("config file does not exist: %s", filepath.Clean(configPath))
		}
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		config, err := LoadWithOptions(LoadOptions{
			ConfigPath:       configPath,
			ValidateRequired: true,
		})
		if err != nil {
			fmt.Printf("Failed to reload config after change to %s: %v\n", e.Name, err)
			return
		}
		callback(config)
	})

	return nil
}
