// Package config loads service configuration from an optional YAML file and
// applies environment-variable overrides on top of built-in defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Search   SearchConfig   `yaml:"search"`
	AI       AIConfig       `yaml:"ai"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Grading  GradingConfig  `yaml:"grading"`
	Ticket   TicketConfig   `yaml:"ticket"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PostgresConfig is optional; an empty DSN disables the attempt ledger.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// KafkaConfig is optional; no brokers disables event publishing.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.Topic != ""
}

type SearchConfig struct {
	APIKey   string        `yaml:"-"`
	BaseURL  string        `yaml:"baseUrl"`
	Count    int           `yaml:"count"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

type PipelineConfig struct {
	MinWorkers      int           `yaml:"minWorkers"`
	MaxWorkers      int           `yaml:"maxWorkers"`
	Concurrency     int           `yaml:"concurrency"`
	SearchTimeout   time.Duration `yaml:"searchTimeout"`
	ItemTimeout     time.Duration `yaml:"itemTimeout"`
	ValidateTimeout time.Duration `yaml:"validateTimeout"`
	JudgeTimeout    time.Duration `yaml:"judgeTimeout"`
	EventBuffer     int           `yaml:"eventBuffer"`
}

type IngestConfig struct {
	ChunkSize    int    `yaml:"chunkSize"`
	ChunkOverlap int    `yaml:"chunkOverlap"`
	MaxChunks    int    `yaml:"maxChunks"`
	MaxPageBytes int64  `yaml:"maxPageBytes"`
	IndexPath    string `yaml:"indexPath"`
}

// GradingConfig holds the comparator tunables. The defaults mirror the
// values the grader was calibrated with.
type GradingConfig struct {
	NumericTolerance    float64 `yaml:"numericTolerance"`
	ExactNumeric        bool    `yaml:"exactNumeric"`
	SimilarityThreshold float64 `yaml:"similarityThreshold"`
	WeakTypeThreshold   float64 `yaml:"weakTypeThreshold"`
}

type TicketConfig struct {
	Secret string        `yaml:"-"`
	TTL    time.Duration `yaml:"ttl"`
}

// Load reads a YAML config file (if path is set) over the defaults and then
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "platypus",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Kafka: KafkaConfig{
			Topic: "platypus-events",
		},
		Search: SearchConfig{
			BaseURL:  "https://api.search.brave.com/res/v1/web/search",
			Count:    4,
			CacheTTL: 6 * time.Hour,
		},
		AI: *DefaultAIConfig(),
		Pipeline: PipelineConfig{
			MinWorkers:      4,
			MaxWorkers:      16,
			SearchTimeout:   30 * time.Second,
			ItemTimeout:     60 * time.Second,
			ValidateTimeout: 120 * time.Second,
			JudgeTimeout:    60 * time.Second,
			EventBuffer:     16,
		},
		Ingest: IngestConfig{
			ChunkSize:    1500,
			ChunkOverlap: 200,
			MaxChunks:    12,
			MaxPageBytes: 4 << 20,
			IndexPath:    "data/chunks.db",
		},
		Grading: GradingConfig{
			NumericTolerance:    0.01,
			SimilarityThreshold: 0.70,
			WeakTypeThreshold:   60,
		},
		Ticket: TicketConfig{
			TTL: 10 * time.Minute,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.Server.Port = getEnvOrDefault("PORT", cfg.Server.Port)
	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnvOrDefault("LOG_FORMAT", cfg.Logging.Format)

	cfg.Mongo.URI = getEnvOrDefault("MONGO_URI", cfg.Mongo.URI)
	cfg.Mongo.Database = getEnvOrDefault("MONGO_DATABASE", cfg.Mongo.Database)

	// REDIS_URI may carry a redis:// scheme
	cfg.Redis.Addr = strings.TrimPrefix(getEnvOrDefault("REDIS_URI", cfg.Redis.Addr), "redis://")
	cfg.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.Redis.Password)

	cfg.Postgres.DSN = getEnvOrDefault("POSTGRES_DSN", cfg.Postgres.DSN)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	cfg.Kafka.Topic = getEnvOrDefault("KAFKA_TOPIC", cfg.Kafka.Topic)

	cfg.Search.APIKey = getEnvOrDefault("BRAVE_API_KEY", cfg.Search.APIKey)
	cfg.Search.BaseURL = getEnvOrDefault("SEARCH_BASE_URL", cfg.Search.BaseURL)

	if v := os.Getenv("PIPELINE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.Concurrency = n
		}
	}
	cfg.Ingest.IndexPath = getEnvOrDefault("INGEST_INDEX_PATH", cfg.Ingest.IndexPath)

	cfg.Ticket.Secret = getEnvOrDefault("TICKET_SECRET", cfg.Ticket.Secret)
	if cfg.Ticket.Secret == "" {
		cfg.Ticket.Secret = "dev-ticket-secret-change-in-production"
	}

	cfg.AI.applyEnv()
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
