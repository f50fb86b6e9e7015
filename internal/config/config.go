package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tair/smart-inventory/pkg/database"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config is the full runtime configuration of the inventory service.
type Config struct {
	ServiceName   string
	Environment   string
	LogLevel      string
	HTTPPort      string
	GRPCPort      string
	StoreDriver   string
	Database      database.Config
	LockTimeout   time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ReportTTL     time.Duration
	ReportTopN    int
	Location      *time.Location
	KafkaBrokers  []string
	KafkaGroupID  string
	JWTSecret     string
	JWTIssuer     string
	JaegerURL     string
}

func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load(envFiles...)

	cfg := Config{
		ServiceName: getEnv("OTEL_SERVICE_NAME", "inventory-service"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		HTTPPort:    getEnv("HTTP_PORT", "8083"),
		GRPCPort:    getEnv("GRPC_PORT", "9093"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		Database: database.Config{
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", "postgres"),
			DBName:     getEnv("DB_NAME", "inventorydb"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			DSN:        os.Getenv("DB_DSN"),
			LogQueries: getEnv("DB_LOG_QUERIES", "false") == "true",
		},
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaGroupID:  getEnv("KAFKA_GROUP_ID", "inventory-service"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTIssuer:     os.Getenv("JWT_ISSUER"),
		JaegerURL:     os.Getenv("JAEGER_ENDPOINT"),
	}

	var err error
	if cfg.LockTimeout, err = getDuration("DB_LOCK_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ReportTTL, err = getDuration("REPORT_CACHE_TTL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.ReportTopN, err = getInt("REPORT_TOP_N", 5); err != nil {
		return Config{}, err
	}

	tz := getEnv("REPORT_TIMEZONE", "UTC")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return Config{}, fmt.Errorf("invalid REPORT_TIMEZONE %q: %w", tz, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.JWTSecret == "" && !c.IsDevelopment() {
		return fmt.Errorf("JWT_SECRET is required outside development")
	}
	if c.ReportTopN <= 0 {
		return fmt.Errorf("REPORT_TOP_N must be positive, got %d", c.ReportTopN)
	}
	return nil
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

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
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
