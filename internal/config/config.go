// Package config provides configuration loading for the ARIA API and CLI.
// Supports YAML files, .env files, and environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

// localPlaceholderDSN marks the developer placeholder database that is never provisioned.
const localPlaceholderDSN = "localhost:5432/aria_banking"

// Config holds all configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Data          DataConfig          `yaml:"data"`
	Database      DatabaseConfig      `yaml:"database"`
	Cache         CacheConfig         `yaml:"cache"`
	LLM           LLMConfig           `yaml:"llm"`
	RAG           RAGConfig           `yaml:"rag"`
	Chat          ChatConfig          `yaml:"chat"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	AllowedOrigins   []string      `yaml:"allowed_origins"`
}

// DataConfig points at the client dataset.
type DataConfig struct {
	ClientsPath string `yaml:"clients_path"`
}

// DatabaseConfig holds portfolio database settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // memory, sqlite or postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// CacheConfig holds insights cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// LLMConfig holds chat-completion provider settings.
type LLMConfig struct {
	Provider string        `yaml:"provider"`
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// RAGConfig holds the external RAG service settings.
type RAGConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ChatConfig holds assistant limits.
type ChatConfig struct {
	MaxMessageLength int `yaml:"max_message_length"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// Load reads .env files, an optional YAML file, and environment overrides.
func Load(path string) (*Config, error) {
	// Missing .env files are fine.
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with development defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             5000,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     60 * time.Second,
			IdleTimeout:      120 * time.Second,
			RequestTimeout:   55 * time.Second,
			GracefulShutdown: 10 * time.Second,
			AllowedOrigins:   []string{"*"},
		},
		Data: DataConfig{
			ClientsPath: "data/row_cards.jsonl",
		},
		Database: DatabaseConfig{
			Driver: DriverMemory,
			SQLite: SQLiteConfig{
				Path: "/tmp/aria-banking.db",
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        30 * time.Minute,
			MaxEntries: 5000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
			},
		},
		LLM: LLMConfig{
			Provider: ProviderOpenAI,
			BaseURL:  "https://api.openai.com/v1",
			Model:    "gpt-4o",
			Timeout:  30 * time.Second,
		},
		RAG: RAGConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 5 * time.Second,
		},
		Chat: ChatConfig{
			MaxMessageLength: 1000,
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "aria-api",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.Database.Postgres.DSN == "" {
			return fmt.Errorf("postgres driver requires a dsn")
		}
	default:
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderOllama, ProviderAnthropic:
	default:
		return fmt.Errorf("invalid llm provider: %s", c.LLM.Provider)
	}

	if c.Chat.MaxMessageLength < 1 {
		return fmt.Errorf("chat.max_message_length must be positive")
	}

	if c.Data.ClientsPath == "" {
		return fmt.Errorf("data.clients_path is required")
	}

	return nil
}

// LLMConfigured reports whether an LLM can be called. Ollama runs locally and needs no key.
func (c *Config) LLMConfigured() bool {
	return c.LLM.APIKey != "" || c.LLM.Provider == ProviderOllama
}

// DatabaseDSN returns the connection string for the configured SQL driver.
func (c *Config) DatabaseDSN() string {
	switch c.Database.Driver {
	case DriverSQLite:
		return c.Database.SQLite.Path
	case DriverPostgres:
		return c.Database.Postgres.DSN
	}
	return ""
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	for _, key := range []string{"PORT", "SERVER_PORT"} {
		if v := os.Getenv(key); v != "" {
			if port, err := strconv.Atoi(v); err == nil {
				cfg.Server.Port = port
			}
		}
	}

	if v := os.Getenv("CLIENTS_DATA_PATH"); v != "" {
		cfg.Data.ClientsPath = v
	}

	if v, ok := os.LookupEnv("DATABASE_URL"); ok {
		applyDatabaseURL(cfg, v)
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		if err := applyRedisURL(cfg, v); err != nil {
			return err
		}
	}

	if v := os.Getenv("AI_INTEGRATIONS_OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}

	if v := os.Getenv("AI_INTEGRATIONS_OPENAI_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = strings.TrimRight(v, "/")
	}

	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}

	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}

	if v := os.Getenv("RAG_API_URL"); v != "" {
		cfg.RAG.BaseURL = strings.TrimRight(v, "/")
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	return nil
}

// applyRedisURL selects the Redis cache. A bare host:port is taken as the
// address; anything with a scheme is parsed as a redis:// or rediss:// URL.
func applyRedisURL(cfg *Config, v string) error {
	cfg.Cache.Driver = "redis"

	if !strings.Contains(v, "://") {
		cfg.Cache.Redis.Addr = v
		return nil
	}

	opts, err := redis.ParseURL(v)
	if err != nil {
		return fmt.Errorf("parse REDIS_URL: %w", err)
	}
	cfg.Cache.Redis.Addr = opts.Addr
	cfg.Cache.Redis.Password = opts.Password
	cfg.Cache.Redis.DB = opts.DB
	return nil
}

// applyDatabaseURL picks the driver from DATABASE_URL. An empty value or the local
// placeholder selects the in-memory repository.
func applyDatabaseURL(cfg *Config, v string) {
	switch {
	case v == "" || strings.Contains(v, localPlaceholderDSN):
		cfg.Database.Driver = DriverMemory
	case strings.HasPrefix(v, "sqlite:"):
		cfg.Database.Driver = DriverSQLite
		cfg.Database.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
	case strings.HasPrefix(v, "postgres"):
		cfg.Database.Driver = DriverPostgres
		cfg.Database.Postgres.DSN = v
	}
}
