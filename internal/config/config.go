package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"notigram/internal/domain/notification"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Executor kinds for non-blocking dispatch.
const (
	ExecutorPool  = "pool"
	ExecutorQueue = "queue"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Dispatch   DispatchConfig   `mapstructure:"dispatch"`
	Timeouts   TimeoutsConfig   `mapstructure:"timeouts"`
	Sink       SinkConfig       `mapstructure:"sink"`
	SharedGate SharedGateConfig `mapstructure:"shared_gate"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Supabase   SupabaseConfig   `mapstructure:"supabase"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// AuthConfig holds API key authentication settings.
type AuthConfig struct {
	APIKeys []string `mapstructure:"api_keys"`
}

// CORSConfig holds CORS policy settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// RateLimitConfig holds per-client HTTP ingress limits.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// TelegramConfig identifies the bot and the target chat.
type TelegramConfig struct {
	BotToken  string `mapstructure:"bot_token"`
	ChatID    string `mapstructure:"chat_id"`
	ParseMode string `mapstructure:"parse_mode"`
	APIURL    string `mapstructure:"api_url"`
}

// DispatchConfig holds the delivery policy.
type DispatchConfig struct {
	MinIntervalMs  int    `mapstructure:"min_interval_ms"`
	MaxMessageSize int    `mapstructure:"max_message_size"`
	SplitMessage   bool   `mapstructure:"split_message"`
	NonBlocking    bool   `mapstructure:"non_blocking"`
	Executor       string `mapstructure:"executor"`
	Workers        int    `mapstructure:"workers"`
	Layout         string `mapstructure:"layout"`
	LayoutFile     string `mapstructure:"layout_file"`
	HistorySize    int    `mapstructure:"history_size"`
}

// TimeoutsConfig holds per-call transport timeouts in seconds (0 = no limit).
type TimeoutsConfig struct {
	ConnectSec           int `mapstructure:"connect_sec"`
	ConnectionRequestSec int `mapstructure:"connection_request_sec"`
	SocketSec            int `mapstructure:"socket_sec"`
}

// SinkConfig controls forwarding of the service's own log records.
type SinkConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	MinLevel string `mapstructure:"min_level"`
}

// SharedGateConfig enables the Redis-backed cross-process rate gate.
type SharedGateConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// QueueConfig holds asynq worker settings.
type QueueConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// SupabaseConfig holds Supabase project settings. Empty URL disables the failure table.
type SupabaseConfig struct {
	URL        string `mapstructure:"url"`
	ServiceKey string `mapstructure:"service_key"`
}

// Load reads configuration from config.yaml and environment variables.
// Environment variables use the NOTIGRAM_ prefix and underscore separators.
// Example: NOTIGRAM_TELEGRAM_BOT_TOKEN overrides telegram.bot_token in config.yaml.
func Load() (*Config, error) {
	v := viper.New()

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Load .env file if it exists
	_ = godotenv.Load()

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("NOTIGRAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional; env vars can provide everything)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Handle comma-separated API keys from env var
	if apiKeysStr := v.GetString("auth.api_keys"); apiKeysStr != "" && len(cfg.Auth.APIKeys) == 0 {
		keys := strings.Split(apiKeysStr, ",")
		for _, k := range keys {
			if k = strings.TrimSpace(k); k != "" {
				cfg.Auth.APIKeys = append(cfg.Auth.APIKeys, k)
			}
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.mode", "release")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "X-API-Key", "X-Request-ID"})
	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.parse_mode", "")
	v.SetDefault("telegram.api_url", "https://api.telegram.org")
	v.SetDefault("dispatch.min_interval_ms", notification.DefaultMinInterval.Milliseconds())
	v.SetDefault("dispatch.max_message_size", notification.DefaultMaxMessageSize)
	v.SetDefault("dispatch.split_message", true)
	v.SetDefault("dispatch.non_blocking", true)
	v.SetDefault("dispatch.executor", ExecutorPool)
	v.SetDefault("dispatch.workers", 4)
	v.SetDefault("dispatch.layout", "")
	v.SetDefault("dispatch.layout_file", "")
	v.SetDefault("dispatch.history_size", 100)
	v.SetDefault("timeouts.connect_sec", 5)
	v.SetDefault("timeouts.connection_request_sec", 5)
	v.SetDefault("timeouts.socket_sec", 5)
	v.SetDefault("sink.enabled", false)
	v.SetDefault("sink.min_level", "ERROR")
	v.SetDefault("shared_gate.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.service_key", "")
}

// NotificationConfig builds the gateway's dispatch configuration.
// Range checks happen in notification.DispatchConfig.Validate when the gateway starts.
func (c *Config) NotificationConfig() notification.DispatchConfig {
	return notification.DispatchConfig{
		BotToken:       c.Telegram.BotToken,
		ChatID:         c.Telegram.ChatID,
		ParseMode:      c.Telegram.ParseMode,
		MaxMessageSize: c.Dispatch.MaxMessageSize,
		SplitMessage:   c.Dispatch.SplitMessage,
		NonBlocking:    c.Dispatch.NonBlocking,
		MinInterval:    time.Duration(c.Dispatch.MinIntervalMs) * time.Millisecond,
		Timeouts: notification.Timeouts{
			Connect:           time.Duration(c.Timeouts.ConnectSec) * time.Second,
			ConnectionRequest: time.Duration(c.Timeouts.ConnectionRequestSec) * time.Second,
			Socket:            time.Duration(c.Timeouts.SocketSec) * time.Second,
		},
	}
}

// SinkLevel parses sink.min_level, defaulting to ERROR.
func (c *Config) SinkLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Sink.MinLevel)); err != nil {
		return slog.LevelError
	}
	return level
}
