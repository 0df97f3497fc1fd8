package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Session  SessionConfig  `mapstructure:"session"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Pool     PoolConfig     `mapstructure:"pool"`
	Workers  WorkerConfig   `mapstructure:"workers"`
	Model    ModelConfig    `mapstructure:"model"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Security SecurityConfig `mapstructure:"security"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type SessionConfig struct {
	// WindowSize is the number of exchanges retained per session
	WindowSize int `mapstructure:"window_size"`
	// MaxSessions caps the number of live sessions; 0 keeps them forever
	MaxSessions int `mapstructure:"max_sessions"`
}

type CacheConfig struct {
	Capacity int `mapstructure:"capacity"`
	// Preload questions are answered once at startup to seed the cache
	Preload []string `mapstructure:"preload"`
}

type PoolConfig struct {
	IdleThreshold time.Duration `mapstructure:"idle_threshold"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	ReuseWindow   time.Duration `mapstructure:"reuse_window"`
	WarmupCount   int           `mapstructure:"warmup_count"`
}

type WorkerConfig struct {
	PoolSize  int `mapstructure:"pool_size"`
	QueueSize int `mapstructure:"queue_size"`
}

type ModelConfig struct {
	DefaultProvider string        `mapstructure:"default_provider"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	Azure           AzureConfig   `mapstructure:"azure"`
	Gemini          GeminiConfig  `mapstructure:"gemini"`
	Ollama          OllamaConfig  `mapstructure:"ollama"`
}

type AzureConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Endpoint   string `mapstructure:"endpoint"`
	APIVersion string `mapstructure:"api_version"`
	Deployment string `mapstructure:"deployment"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OllamaConfig struct {
	Host         string `mapstructure:"host"`
	DefaultModel string `mapstructure:"default_model"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type SecurityConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set config file path
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
		// Config file not found, use defaults and env vars
	}

	// Override with environment variables
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", "30s")
	// Write timeout must outlast the slowest model call
	v.SetDefault("server.write_timeout", "150s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")

	// Session memory
	v.SetDefault("session.window_size", 10)
	v.SetDefault("session.max_sessions", 0)

	// Response cache
	v.SetDefault("cache.capacity", 1000)

	// Connection pool maintenance
	v.SetDefault("pool.idle_threshold", "120s")
	v.SetDefault("pool.poll_interval", "60s")
	v.SetDefault("pool.reuse_window", "600s")
	v.SetDefault("pool.warmup_count", 5)

	// Background workers
	v.SetDefault("workers.pool_size", 4)
	v.SetDefault("workers.queue_size", 256)

	// Model
	v.SetDefault("model.default_provider", "azure")
	v.SetDefault("model.request_timeout", "120s")
	v.SetDefault("model.azure.api_version", "2024-02-01")
	v.SetDefault("model.ollama.host", "")
	v.SetDefault("model.ollama.default_model", "llama3")

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Security
	v.SetDefault("security.rate_limit.requests_per_minute", 60)
	v.SetDefault("security.rate_limit.burst", 10)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	// Azure OpenAI
	v.BindEnv("model.azure.api_key", "AZURE_OPENAI_API_KEY")
	v.BindEnv("model.azure.endpoint", "AZURE_OPENAI_ENDPOINT")
	v.BindEnv("model.azure.api_version", "AZURE_OPENAI_API_VERSION")
	v.BindEnv("model.azure.deployment", "AZURE_OPENAI_CHAT_DEPLOYMENT_NAME")

	// Other providers
	v.BindEnv("model.gemini.api_key", "GEMINI_API_KEY")
	v.BindEnv("model.ollama.host", "OLLAMA_HOST")
	v.BindEnv("model.default_provider", "MODEL_PROVIDER")

	// Redis
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.port", "SERVER_PORT")
}
