package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"matching-core/internal/book"
	"matching-core/internal/symbolspec"
)

const (
	StoreDriverFile   = "file"
	StoreDriverPebble = "pebble"

	PublisherDriverNone   = "none"
	PublisherDriverKafka  = "kafka"
	PublisherDriverSarama = "sarama"
)

// Config holds the runtime configuration of the matching service
type Config struct {
	HTTP struct {
		Addr            string        `yaml:"addr"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"http"`

	GRPC struct {
		Addr string `yaml:"addr"`
	} `yaml:"grpc"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	Store struct {
		Driver  string `yaml:"driver"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"store"`

	Publisher struct {
		Driver  string   `yaml:"driver"`
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"publisher"`

	Engine struct {
		ShardCount     int           `yaml:"shard_count"`
		QueueSize      int           `yaml:"queue_size"`
		IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
		MaxRetries     int           `yaml:"max_retries"`
		SnapshotEvery  int64         `yaml:"snapshot_every"`
	} `yaml:"engine"`

	Books []BookConfig `yaml:"books"`
}

// BookConfig describes a served book and its initial trading status
type BookConfig struct {
	symbolspec.Spec `yaml:",inline"`
	TradingStatus   book.TradingStatus `yaml:"trading_status"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = ":8080"
	cfg.HTTP.ShutdownTimeout = 10 * time.Second
	cfg.GRPC.Addr = ":9090"
	cfg.Logging.Level = "info"
	cfg.Store.Driver = StoreDriverFile
	cfg.Store.DataDir = "data"
	cfg.Publisher.Driver = PublisherDriverNone
	cfg.Publisher.Topic = "book-events"
	cfg.Engine.ShardCount = 8
	cfg.Engine.QueueSize = 1000
	cfg.Engine.IdempotencyTTL = 24 * time.Hour
	cfg.Engine.MaxRetries = 3
	cfg.Engine.SnapshotEvery = 1000
	for _, id := range symbolspec.Default().BookIDs() {
		spec, _ := symbolspec.Default().Get(id)
		cfg.Books = append(cfg.Books, BookConfig{Spec: spec, TradingStatus: book.TradingStatusOpenForTrading})
	}
	return cfg
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http addr is required")
	}
	if !isValidLogLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}

	switch c.Store.Driver {
	case StoreDriverFile, StoreDriverPebble:
	default:
		return fmt.Errorf("invalid store driver %q", c.Store.Driver)
	}
	if c.Store.DataDir == "" {
		return errors.New("store data dir is required")
	}

	switch c.Publisher.Driver {
	case PublisherDriverNone:
	case PublisherDriverKafka, PublisherDriverSarama:
		if len(c.Publisher.Brokers) == 0 {
			return fmt.Errorf("publisher %s requires at least one broker", c.Publisher.Driver)
		}
		if c.Publisher.Topic == "" {
			return fmt.Errorf("publisher %s requires a topic", c.Publisher.Driver)
		}
	default:
		return fmt.Errorf("invalid publisher driver %q", c.Publisher.Driver)
	}

	if c.Engine.ShardCount <= 0 {
		return errors.New("shard count must be positive")
	}
	if c.Engine.QueueSize <= 0 {
		return errors.New("queue size must be positive")
	}
	if c.Engine.MaxRetries < 0 || c.Engine.SnapshotEvery < 0 {
		return errors.New("max retries and snapshot interval must not be negative")
	}

	if len(c.Books) == 0 {
		return errors.New("at least one book is required")
	}
	for _, b := range c.Books {
		if b.TradingStatus != "" && !b.TradingStatus.IsValid() {
			return fmt.Errorf("book %s: invalid trading status %q", b.BookID, b.TradingStatus)
		}
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	return nil
}

// Registry builds the symbol registry of the configured books
func (c *Config) Registry() (*symbolspec.Registry, error) {
	specs := make([]symbolspec.Spec, 0, len(c.Books))
	for _, b := range c.Books {
		specs = append(specs, b.Spec)
	}
	return symbolspec.NewRegistry(specs...)
}

// Statuses returns the initial trading statuses of a configured book
func (b BookConfig) Statuses() book.TradingStatuses {
	if b.TradingStatus == "" {
		return book.NewTradingStatuses(book.TradingStatusOpenForTrading)
	}
	return book.NewTradingStatuses(b.TradingStatus)
}

func overrideWithEnv(cfg *Config) error {
	if v := os.Getenv("APP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("GRPC_ADDR"); v != "" {
		cfg.GRPC.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Store.DataDir = v
	}
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		cfg.Store.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("PUBLISHER_DRIVER"); v != "" {
		cfg.Publisher.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Publisher.Brokers = splitList(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.Publisher.Topic = v
	}
	if v := os.Getenv("SHARD_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SHARD_COUNT: %w", err)
		}
		cfg.Engine.ShardCount = n
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
