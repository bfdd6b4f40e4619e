// Package config handles loading and validating the voicegate configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session store backends.
const (
	BackendDynamo = "dynamo"
	BackendMemory = "memory"
)

// Config is the root configuration for the voicegate daemon.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	AWS        AWSConfig        `mapstructure:"aws"`
	Polly      PollyConfig      `mapstructure:"polly"`
	Sessions   SessionsConfig   `mapstructure:"sessions"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Narration  NarrationConfig  `mapstructure:"narration"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// GRPCConfig configures the gRPC health transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP API transport.
type HTTPConfig struct {
	Enabled      bool  `mapstructure:"enabled"`
	Port         int   `mapstructure:"port"`
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// AWSConfig selects the region and credential source for every AWS client.
//
// Access keys are never read from here. The SDK default chain resolves them
// from AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY, the shared credentials file
// (optionally under Profile) or an attached IAM role.
type AWSConfig struct {
	Region   string `mapstructure:"region"`
	Profile  string `mapstructure:"profile"`
	Endpoint string `mapstructure:"endpoint"` // override for LocalStack and similar
}

// PollyConfig tunes the speech synthesis gateway.
type PollyConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	DefaultStyle string        `mapstructure:"default_style"`
}

// SessionsConfig selects and configures the voice session store.
type SessionsConfig struct {
	Backend            string `mapstructure:"backend"` // "dynamo" or "memory"
	SessionsTable      string `mapstructure:"sessions_table"`
	ConversationsTable string `mapstructure:"conversations_table"`
	ContentTable       string `mapstructure:"content_table"`
	StudentLessonIndex string `mapstructure:"student_lesson_index"`
}

// StorageConfig configures S3 publishing of synthesized audio.
// Publishing is disabled while Bucket is empty.
type StorageConfig struct {
	Bucket        string `mapstructure:"bucket"`
	Prefix        string `mapstructure:"prefix"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// Enabled reports whether audio publishing is configured.
func (s StorageConfig) Enabled() bool { return s.Bucket != "" }

// NarrationConfig controls lesson narration on session create. Narrated
// segments are written to the storage bucket under Prefix.
type NarrationConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Prefix      string        `mapstructure:"prefix"`
	Concurrency int           `mapstructure:"concurrency"` // segments synthesized at once
	Bedrock     BedrockConfig `mapstructure:"bedrock"`
}

// BedrockConfig configures lesson text generation when a create request
// carries no lessonText.
type BedrockConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ModelID     string  `mapstructure:"model_id"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
	File   string `mapstructure:"file"`   // optional rotated log file
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./voicegate.yaml, ./configs/voicegate.yaml, /etc/voicegate/voicegate.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("transports.http.max_body_bytes", 1<<20)
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.profile", "")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("polly.timeout", 30*time.Second)
	v.SetDefault("polly.default_style", "professional")
	v.SetDefault("sessions.backend", BackendDynamo)
	v.SetDefault("sessions.sessions_table", "intellilearn-voice-sessions")
	v.SetDefault("sessions.conversations_table", "intellilearn-voice-conversations")
	v.SetDefault("sessions.content_table", "intellilearn-voice-content")
	v.SetDefault("sessions.student_lesson_index", "StudentLessonIndex")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "voice-responses")
	v.SetDefault("storage.public_base_url", "")
	v.SetDefault("narration.enabled", false)
	v.SetDefault("narration.prefix", "voice-sessions")
	v.SetDefault("narration.concurrency", 4)
	v.SetDefault("narration.bedrock.enabled", false)
	v.SetDefault("narration.bedrock.model_id", "anthropic.claude-3-sonnet-20240229-v1:0")
	v.SetDefault("narration.bedrock.max_tokens", 4000)
	v.SetDefault("narration.bedrock.temperature", 0.7)
	v.SetDefault("narration.bedrock.top_p", 0.9)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("voicegate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/voicegate")
	}

	// Environment variables: VOICEGATE_AWS_REGION, VOICEGATE_SESSIONS_BACKEND, etc.
	v.SetEnvPrefix("VOICEGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional, env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references (e.g., "${AUDIO_CDN_URL}")
	cfg.AWS.Endpoint = resolveEnvRef(cfg.AWS.Endpoint)
	cfg.Storage.Bucket = resolveEnvRef(cfg.Storage.Bucket)
	cfg.Storage.PublicBaseURL = resolveEnvRef(cfg.Storage.PublicBaseURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	switch c.Sessions.Backend {
	case BackendDynamo, BackendMemory:
	default:
		return fmt.Errorf("invalid config: unknown sessions backend %q", c.Sessions.Backend)
	}
	if c.Polly.Timeout <= 0 {
		return fmt.Errorf("invalid config: polly.timeout must be positive, got %s", c.Polly.Timeout)
	}
	ports := map[string]int{
		"server.health_port":   c.Server.HealthPort,
		"transports.http.port": c.Transports.HTTP.Port,
		"transports.grpc.port": c.Transports.GRPC.Port,
	}
	for key, port := range ports {
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid config: %s out of range: %d", key, port)
		}
	}
	if c.AWS.Region == "" {
		return errors.New("invalid config: aws.region is required")
	}
	if c.Narration.Enabled {
		if !c.Storage.Enabled() {
			return errors.New("invalid config: narration requires storage.bucket")
		}
		if c.Narration.Concurrency < 1 {
			return fmt.Errorf("invalid config: narration.concurrency must be at least 1, got %d", c.Narration.Concurrency)
		}
		if c.Narration.Bedrock.Enabled && c.Narration.Bedrock.ModelID == "" {
			return errors.New("invalid config: narration.bedrock.model_id is required")
		}
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}
