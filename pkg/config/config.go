// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Corpus, Index, Search, Postgres, Kafka, Redis, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Index    IndexConfig    `yaml:"index"`
	Search   SearchConfig   `yaml:"search"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings. RateLimit is the number of
// requests one client address may make per RateWindow; zero disables it.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	AllowOrigins    []string      `yaml:"allowOrigins"`
	RateLimit       int           `yaml:"rateLimit"`
	RateWindow      time.Duration `yaml:"rateWindow"`
}

// CorpusConfig locates the translation assets that make up the searchable
// corpus.
type CorpusConfig struct {
	AssetsDir       string `yaml:"assetsDir"`
	BaseLanguage    string `yaml:"baseLanguage"`
	LanguagesFile   string `yaml:"languagesFile"`
	Watch           bool   `yaml:"watch"`
	CachedLanguages int    `yaml:"cachedLanguages"`
}

// IndexConfig controls the offline did-you-mean index build.
type IndexConfig struct {
	OutputDir       string         `yaml:"outputDir"`
	Workers         int            `yaml:"workers"`
	SectionMaxBytes map[string]int `yaml:"sectionMaxBytes"`
	DefaultMaxBytes int            `yaml:"defaultMaxBytes"`
	MetricsTextfile string         `yaml:"metricsTextfile"`
}

// MaxBytes returns the chunk byte cap for a section.
func (c IndexConfig) MaxBytes(section string) int {
	if v, ok := c.SectionMaxBytes[section]; ok && v > 0 {
		return v
	}
	return c.DefaultMaxBytes
}

// SearchConfig controls runtime query behaviour.
type SearchConfig struct {
	DefaultLanguage string        `yaml:"defaultLanguage"`
	BatchSize       int           `yaml:"batchSize"`
	QueryTimeout    time.Duration `yaml:"queryTimeout"`
	SessionCapacity int           `yaml:"sessionCapacity"`
	SuggestionLimit int           `yaml:"suggestionLimit"`
	IndexDir        string        `yaml:"indexDir"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	SnapshotEvery   time.Duration `yaml:"snapshotEvery"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings. An empty broker list
// disables every Kafka integration.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexComplete   string `yaml:"indexComplete"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters. The result
// cache is off unless Enabled is set, which keeps network I/O off the query
// path by default.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
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
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the builder and searcher cannot run with.
func (c *Config) Validate() error {
	if c.Index.DefaultMaxBytes <= 0 {
		return fmt.Errorf("index.defaultMaxBytes must be positive, got %d", c.Index.DefaultMaxBytes)
	}
	for section, n := range c.Index.SectionMaxBytes {
		if n <= 0 {
			return fmt.Errorf("index.sectionMaxBytes[%s] must be positive, got %d", section, n)
		}
	}
	if c.Search.BatchSize <= 0 {
		return fmt.Errorf("search.batchSize must be positive, got %d", c.Search.BatchSize)
	}
	if c.Search.SessionCapacity <= 0 {
		return fmt.Errorf("search.sessionCapacity must be positive, got %d", c.Search.SessionCapacity)
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow <= 0 {
		return fmt.Errorf("server.rateWindow must be positive when rateLimit is set")
	}
	if c.Corpus.BaseLanguage == "" {
		return fmt.Errorf("corpus.baseLanguage is required")
	}
	return nil
}

// Default returns the built-in configuration, used by tests and tools that
// run without a config file.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AllowOrigins:    []string{"*"},
			RateLimit:       120,
			RateWindow:      time.Minute,
		},
		Corpus: CorpusConfig{
			AssetsDir:       "assets",
			BaseLanguage:    "en",
			LanguagesFile:   "languages.json",
			Watch:           true,
			CachedLanguages: 8,
		},
		Index: IndexConfig{
			OutputDir: "public/didyoumean",
			Workers:   4,
			SectionMaxBytes: map[string]int{
				"frequency":        900000,
				"byLength":         650000,
				"surfaceForms":     900000,
				"searchableTexts":  1000000,
				"bigramFrequency":  900000,
				"trigramFrequency": 900000,
			},
			DefaultMaxBytes: 900000,
		},
		Search: SearchConfig{
			DefaultLanguage: "en",
			BatchSize:       19,
			QueryTimeout:    5 * time.Second,
			SessionCapacity: 1024,
			SuggestionLimit: 5,
			IndexDir:        "public/didyoumean",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "scripture",
			User:            "scripture",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			SnapshotEvery:   time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "scripture-search",
			Topics: KafkaTopics{
				IndexComplete:   "index.complete",
				AnalyticsEvents: "analytics-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads SP_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SP_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v, ok := os.LookupEnv("SP_SERVER_ALLOW_ORIGINS"); ok {
		cfg.Server.AllowOrigins = splitNonEmpty(v)
	}
	if v := os.Getenv("SP_SERVER_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit = n
		}
	}
	if v := os.Getenv("SP_CORPUS_ASSETS_DIR"); v != "" {
		cfg.Corpus.AssetsDir = v
	}
	if v := os.Getenv("SP_CORPUS_BASE_LANGUAGE"); v != "" {
		cfg.Corpus.BaseLanguage = v
	}
	if v := os.Getenv("SP_INDEX_OUTPUT_DIR"); v != "" {
		cfg.Index.OutputDir = v
		cfg.Search.IndexDir = v
	}
	if v := os.Getenv("SP_INDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.Workers = n
		}
	}
	if v := os.Getenv("SP_SEARCH_DEFAULT_LANGUAGE"); v != "" {
		cfg.Search.DefaultLanguage = v
	}
	if v := os.Getenv("SP_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SP_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SP_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SP_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SP_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v, ok := os.LookupEnv("SP_KAFKA_BROKERS"); ok {
		cfg.Kafka.Brokers = splitNonEmpty(v)
	}
	if v := os.Getenv("SP_REDIS_ENABLED"); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = on
		}
	}
	if v := os.Getenv("SP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
