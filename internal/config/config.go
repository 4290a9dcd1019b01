package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Worker     WorkerConfig
	Feed       FeedConfig
	DB         DatabaseConfig
	Logging    LoggingConfig
	Oracle     OracleConfig
	Telegram   TelegramConfig
	Live       LiveConfig
	Moderation ModerationConfig
	Kafka      KafkaConfig
	Registry   RegistryConfig
}

type ServerConfig struct {
	Host      string
	Port      int
	RateLimit int // requests per second, global
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type FeedConfig struct {
	Channels         []string // empty means use the registry defaults
	BaseURL          string
	PollInterval     time.Duration
	FetchConcurrency int
	Timeout          time.Duration
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level string
	File  string
}

type OracleConfig struct {
	APIKey          string
	Model           string
	BaseURL         string
	FallbackAPIKey  string
	FallbackModel   string
	FallbackBaseURL string
	Timeout         time.Duration
}

type TelegramConfig struct {
	BotToken        string
	APIURL          string
	MapURL          string
	DeliveryPause   time.Duration
	DeliveryTimeout time.Duration
}

type LiveConfig struct {
	SnapshotInterval time.Duration
}

type ModerationConfig struct {
	AdminUserIDs []int64
	ReportTTL    time.Duration
	MaxPending   int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type RegistryConfig struct {
	Path string
}

func Load() (*Config, error) {
	admins, err := getEnvInt64List("ADMIN_USER_IDS")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:      getEnv("SERVER_HOST", "localhost"),
			Port:      getEnvInt("SERVER_PORT", 8000),
			RateLimit: getEnvInt("SERVER_RATE_LIMIT", 20),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		Feed: FeedConfig{
			Channels:         getEnvList("FEED_CHANNELS"),
			BaseURL:          getEnv("FEED_BASE_URL", "https://t.me"),
			PollInterval:     getEnvDuration("FEED_POLL_INTERVAL", 10*time.Second),
			FetchConcurrency: getEnvInt("FEED_FETCH_CONCURRENCY", 4),
			Timeout:          getEnvDuration("FEED_TIMEOUT", 15*time.Second),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/radar-alerts.db"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
		Oracle: OracleConfig{
			APIKey:          getEnv("OPENAI_API_KEY", ""),
			Model:           getEnv("OPENAI_MODEL", "o3-mini"),
			BaseURL:         getEnv("OPENAI_BASE_URL", ""),
			FallbackAPIKey:  getEnv("OLLAMA_API_KEY", ""),
			FallbackModel:   getEnv("OLLAMA_MODEL", "gpt-oss:120b"),
			FallbackBaseURL: getEnv("OLLAMA_BASE_URL", "https://ollama.com/v1"),
			Timeout:         getEnvDuration("ORACLE_TIMEOUT", 60*time.Second),
		},
		Telegram: TelegramConfig{
			BotToken:        getEnv("BOT_TOKEN", ""),
			APIURL:          getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
			MapURL:          getEnv("MAP_URL", "https://radarone.online"),
			DeliveryPause:   getEnvDuration("DELIVERY_PAUSE", 50*time.Millisecond),
			DeliveryTimeout: getEnvDuration("DELIVERY_TIMEOUT", 10*time.Second),
		},
		Live: LiveConfig{
			SnapshotInterval: getEnvDuration("POLL_FALLBACK_INTERVAL", 5*time.Second),
		},
		Moderation: ModerationConfig{
			AdminUserIDs: admins,
			ReportTTL:    getEnvDuration("REPORT_TTL", 24*time.Hour),
			MaxPending:   getEnvInt("REPORT_MAX_PENDING", 1000),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "radar-transitions"),
		},
		Registry: RegistryConfig{
			Path: getEnv("REGISTRY_PATH", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimit < 1 {
		return fmt.Errorf("SERVER_RATE_LIMIT must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Worker.Count < 1 {
		return fmt.Errorf("WORKER_COUNT must be at least 1")
	}
	if c.Worker.BufferSize < 0 {
		return fmt.Errorf("WORKER_BUFFER_SIZE must not be negative")
	}
	if c.Feed.PollInterval < time.Second {
		return fmt.Errorf("FEED_POLL_INTERVAL must be at least 1 second")
	}
	if c.Feed.FetchConcurrency < 1 {
		return fmt.Errorf("FEED_FETCH_CONCURRENCY must be at least 1")
	}
	if c.Live.SnapshotInterval < time.Second {
		return fmt.Errorf("POLL_FALLBACK_INTERVAL must be at least 1 second")
	}
	if c.Oracle.Timeout <= 0 {
		return fmt.Errorf("ORACLE_TIMEOUT must be positive")
	}
	if c.Telegram.DeliveryPause < 0 {
		return fmt.Errorf("DELIVERY_PAUSE must not be negative")
	}
	if c.Moderation.MaxPending < 1 {
		return fmt.Errorf("REPORT_MAX_PENDING must be at least 1")
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvInt64List(key string) ([]int64, error) {
	var ids []int64
	for _, part := range getEnvList(key) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", key, part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
