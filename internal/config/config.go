package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageMemory = "memory"
	StorageMySQL  = "mysql"
)

type Config struct {
	Env      string
	LogLevel string

	HTTPAddr        string
	GRPCAddr        string
	ShutdownTimeout time.Duration

	// Storage selects in-process adapters or MySQL orders with Redis carts and locks.
	Storage   string
	MySQLDSN  string
	RedisAddr string
	LockTTL   time.Duration

	// KafkaBrokers empty means events are only logged and no consumer runs.
	KafkaBrokers  []string
	KafkaGroupID  string
	ConsumerCount int

	GatewayTimeout     time.Duration
	BreakerMinRequests int
	BreakerOpenTimeout time.Duration
}

func Load() Config {
	return Config{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:        getEnv("GRPC_ADDR", ":50051"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		Storage:   strings.ToLower(getEnv("STORAGE", StorageMemory)),
		MySQLDSN:  getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/purchases?parseTime=true"),
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		LockTTL:   getEnvDuration("LOCK_TTL", 10*time.Second),

		KafkaBrokers:  getEnvList("KAFKA_BROKERS"),
		KafkaGroupID:  getEnv("KAFKA_GROUP_ID", "purchase-lifecycle"),
		ConsumerCount: getEnvInt("CONSUMER_WORKERS", 4),

		GatewayTimeout:     getEnvDuration("GATEWAY_TIMEOUT", 2*time.Second),
		BreakerMinRequests: getEnvInt("BREAKER_MIN_REQUESTS", 5),
		BreakerOpenTimeout: getEnvDuration("BREAKER_OPEN_TIMEOUT", 15*time.Second),
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Storage != StorageMemory && c.Storage != StorageMySQL {
		errs = append(errs, fmt.Errorf("STORAGE must be %q or %q, got %q", StorageMemory, StorageMySQL, c.Storage))
	}
	if c.Storage == StorageMySQL && c.MySQLDSN == "" {
		errs = append(errs, errors.New("MYSQL_DSN is required for mysql storage"))
	}
	if c.Storage == StorageMySQL && c.RedisAddr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required for mysql storage"))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("HTTP_ADDR is required"))
	}
	if c.ConsumerCount <= 0 {
		errs = append(errs, errors.New("CONSUMER_WORKERS must be positive"))
	}
	if c.GatewayTimeout <= 0 {
		errs = append(errs, errors.New("GATEWAY_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
