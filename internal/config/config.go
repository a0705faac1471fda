package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	CartStoreMongo  = "mongo"
	CartStoreMemory = "memory"
)

type Config struct {
	HTTPPort       string
	GRPCHealthPort string

	CartStore   string
	MongoURI    string
	MongoDBName string

	RedisAddr     string
	RedisPassword string

	CatalogDriver string
	CatalogDSN    string

	KafkaBrokers  []string
	CheckoutTopic string

	CartLockTimeout    time.Duration
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	CORSOrigins  []string
	OTLPEndpoint string

	LogLevel  string
	LogFormat string
}

// Load reads the configuration from the environment, applying defaults for
// anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "5000"),
		GRPCHealthPort:     getEnv("GRPC_HEALTH_PORT", "50051"),
		CartStore:          getEnv("CART_STORE", CartStoreMongo),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:        getEnv("MONGO_DB_NAME", "storefront"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		CatalogDriver:      getEnv("CATALOG_DRIVER", "sqlite"),
		CatalogDSN:         getEnv("CATALOG_DSN", "file:storefront.db"),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		CheckoutTopic:      getEnv("CHECKOUT_TOPIC", "cart-checked-out"),
		MaxRequestBodySize: 1 << 20, // 1MB
		CORSOrigins:        splitList(getEnv("CORS_ORIGIN", "http://localhost:3000")),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.CartLockTimeout, err = getDuration("CART_LOCK_TIMEOUT", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.CartStore {
	case CartStoreMongo, CartStoreMemory:
	default:
		return fmt.Errorf("CART_STORE must be %q or %q, got %q", CartStoreMongo, CartStoreMemory, c.CartStore)
	}
	switch c.CatalogDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("CATALOG_DRIVER must be \"sqlite\" or \"postgres\", got %q", c.CatalogDriver)
	}
	if c.CartLockTimeout <= 0 {
		return fmt.Errorf("CART_LOCK_TIMEOUT must be positive")
	}
	return nil
}

// PublishingEnabled reports whether checkout receipts go to Kafka.
func (c *Config) PublishingEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
