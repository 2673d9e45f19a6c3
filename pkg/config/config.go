package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MustLoad loads the configuration from environment variables and .env file.
func MustLoad[T any](cfg T) {
	_ = godotenv.Load() // Load environment variables from .env file

	env.Must(cfg, env.Parse(cfg))
}

// Load loads the configuration from environment variables and an optional .env file.
func Load[T any](cfg T) error {
	_ = godotenv.Load() // missing .env is fine, env vars may be set directly

	return env.Parse(cfg)
}

// Config holds the configuration for the matching engine service.
type Config struct {
	// SymbolsFile points to the JSON reference-data file. Optional: without it
	// the engine runs permissive and accepts any symbol.
	SymbolsFile string `env:"SYMBOLS_FILE"`
	// StrictSymbols rejects orders for symbols the directory does not know.
	StrictSymbols bool `env:"STRICT_SYMBOLS" envDefault:"false"`

	KafkaConfig      `envPrefix:"KAFKA_"`
	RedisConfig      `envPrefix:"REDIS_"`
	ReportsConfig    `envPrefix:"REPORTS_"`
	MarketDataConfig `envPrefix:"MARKET_DATA_"`
	SnapshotConfig   `envPrefix:"SNAPSHOT_"`
}

// KafkaConfig holds the configuration for the order intake consumer.
type KafkaConfig struct {
	Topic   string   `env:"TOPIC,required"`
	GroupID string   `env:"GROUP_ID" envDefault:"matching-engine"`
	Brokers []string `env:"BROKER,required"`
}

// ReportsConfig holds the topics the reporting publisher writes to.
type ReportsConfig struct {
	ExecutionTopic    string   `env:"EXECUTION_TOPIC" envDefault:"execution-reports"`
	TradeCaptureTopic string   `env:"TRADE_CAPTURE_TOPIC" envDefault:"trade-capture-reports"`
	Brokers           []string `env:"BROKER,required"`
}

// MarketDataConfig holds the redis channel top-of-book updates are published to.
type MarketDataConfig struct {
	Channel     string `env:"CHANNEL" envDefault:"market-data"`
	DepthLevels int    `env:"DEPTH_LEVELS" envDefault:"10"`
}

// SnapshotConfig controls the periodic order book snapshots.
type SnapshotConfig struct {
	Interval    time.Duration `env:"INTERVAL" envDefault:"30s"`
	OffsetDelta int64         `env:"OFFSET_DELTA" envDefault:"1000"`
}

// RedisConfig holds the configuration for the Redis client.
type RedisConfig struct {
	Addrs    string `env:"ADDRESS,required"` // Comma-separated list of Redis addresses
	Password string `env:"PASSWORD" envDefault:""`
	Username string `env:"USERNAME" envDefault:""`
	DB       int    `env:"DB" envDefault:"0"`
}
