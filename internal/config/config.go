package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	ServiceName    = "voice-inventory"
	ServiceVersion = "0.1.0"
)

// Store driver names accepted in STORE_DRIVER.
const (
	DriverMemory = "memory"
	DriverMySQL  = "mysql"
	DriverRedis  = "redis"
	DriverMongo  = "mongo"
)

type Config struct {
	HTTPAddr    string
	StoreDriver string

	MySQLDSN      string
	RedisAddr     string
	MongoURI      string
	MongoDatabase string

	// OtelEndpoint enables OTLP trace export when non-empty.
	OtelEndpoint string

	LowStockThreshold int
	LowStockInterval  time.Duration
}

// Load reads configuration from the environment, applying defaults and
// validating what it can without touching the backends.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		StoreDriver:       getenv("STORE_DRIVER", DriverMemory),
		MySQLDSN:          getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/inventory?parseTime=true"),
		RedisAddr:         getenv("REDIS_ADDR", "localhost:6379"),
		MongoURI:          getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getenv("MONGO_DATABASE", "inventory_management"),
		OtelEndpoint:      os.Getenv("OTEL_ENDPOINT"),
		LowStockThreshold: 5,
		LowStockInterval:  time.Minute,
	}

	switch cfg.StoreDriver {
	case DriverMemory, DriverMySQL, DriverRedis, DriverMongo:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if v := os.Getenv("LOW_STOCK_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid LOW_STOCK_THRESHOLD %q", v)
		}
		cfg.LowStockThreshold = n
	}

	if v := os.Getenv("LOW_STOCK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid LOW_STOCK_INTERVAL %q", v)
		}
		cfg.LowStockInterval = d
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
