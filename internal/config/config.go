package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	LockLocal = "local"
	LockRedis = "redis"
)

type Config struct {
	Server       ServerConfig
	Storage      StorageConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Lock         LockConfig
	Kafka        KafkaConfig
	Catalog      CatalogConfig
	Subscription SubscriptionConfig
	RateLimit    RateLimitConfig
}

type ServerConfig struct {
	Host          string
	Port          int
	AdminToken    string
	SecureCookies bool
}

type StorageConfig struct {
	Backend string
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
	MaxConns int32
}

// RedisConfig is disabled when Addr is empty. Cache, idempotency, rate
// limiting and cross-instance notifications then fall back to nothing or to
// their in-process versions.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	BookingInfoTTL time.Duration
	IdempotencyTTL time.Duration
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type LockConfig struct {
	Backend string
	Timeout time.Duration
	// Lease bounds how long a crashed holder keeps a redis lock.
	Lease time.Duration
}

// KafkaConfig is disabled when Brokers is empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

type CatalogConfig struct {
	Path string
}

type SubscriptionConfig struct {
	Timeout time.Duration
}

// RateLimitConfig bounds create-booking requests per user. Limit 0 turns it
// off.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverPort, err := getInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	secure, err := getBool("SECURE_COOKIES", false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	serverCfg := ServerConfig{
		Host:          getString("SERVER_HOST", "localhost"),
		Port:          serverPort,
		AdminToken:    os.Getenv("ADMIN_TOKEN"),
		SecureCookies: secure,
	}

	storageCfg := StorageConfig{Backend: strings.ToLower(getString("STORAGE", StorageMemory))}
	switch storageCfg.Backend {
	case StorageMemory, StoragePostgres:
	default:
		return nil, fmt.Errorf("%s: invalid STORAGE %q", op, storageCfg.Backend)
	}

	postgresCfg, err := postgresFromEnv(storageCfg.Backend == StoragePostgres)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisCfg, err := redisFromEnv()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lockTimeout, err := getDuration("LOCK_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	lockLease, err := getDuration("LOCK_LEASE", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lockCfg := LockConfig{
		Backend: strings.ToLower(getString("LOCK_BACKEND", LockLocal)),
		Timeout: lockTimeout,
		Lease:   lockLease,
	}
	switch lockCfg.Backend {
	case LockLocal:
	case LockRedis:
		if !redisCfg.Enabled() {
			return nil, fmt.Errorf("%s: LOCK_BACKEND=redis requires REDIS_ADDR", op)
		}
	default:
		return nil, fmt.Errorf("%s: invalid LOCK_BACKEND %q", op, lockCfg.Backend)
	}
	if lockCfg.Timeout <= 0 {
		return nil, fmt.Errorf("%s: LOCK_TIMEOUT must be positive", op)
	}

	kafkaCfg := KafkaConfig{
		Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
		Topic:   getString("KAFKA_TOPIC", "skyseat.flight-events"),
		GroupID: getString("KAFKA_GROUP_ID", "skyseat-notifier"),
	}

	subscribeTimeout, err := getDuration("SUBSCRIBE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rateLimit, err := getInt("RATE_LIMIT", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rateWindow, err := getDuration("RATE_WINDOW", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Config{
		Server:       serverCfg,
		Storage:      storageCfg,
		Postgres:     postgresCfg,
		Redis:        redisCfg,
		Lock:         lockCfg,
		Kafka:        kafkaCfg,
		Catalog:      CatalogConfig{Path: os.Getenv("CATALOG_PATH")},
		Subscription: SubscriptionConfig{Timeout: subscribeTimeout},
		RateLimit:    RateLimitConfig{Limit: rateLimit, Window: rateWindow},
	}, nil
}

func postgresFromEnv(required bool) (PostgresConfig, error) {
	port, err := getInt("POSTGRES_PORT", 5432)
	if err != nil {
		return PostgresConfig{}, err
	}
	maxConns, err := getInt("POSTGRES_MAX_CONNS", 0)
	if err != nil {
		return PostgresConfig{}, err
	}

	cfg := PostgresConfig{
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Name:     os.Getenv("POSTGRES_DB"),
		Host:     getString("POSTGRES_HOST", "localhost"),
		Port:     port,
		SSLMode:  getString("POSTGRES_SSLMODE", "disable"),
		MaxConns: int32(maxConns),
	}

	if required {
		switch {
		case cfg.User == "":
			return cfg, fmt.Errorf("missing POSTGRES_USER")
		case cfg.Password == "":
			return cfg, fmt.Errorf("missing POSTGRES_PASSWORD")
		case cfg.Name == "":
			return cfg, fmt.Errorf("missing POSTGRES_DB")
		}
	}

	return cfg, nil
}

func redisFromEnv() (RedisConfig, error) {
	db, err := getInt("REDIS_DB", 0)
	if err != nil {
		return RedisConfig{}, err
	}
	infoTTL, err := getDuration("BOOKING_INFO_TTL", 30*time.Second)
	if err != nil {
		return RedisConfig{}, err
	}
	idemTTL, err := getDuration("IDEMPOTENCY_TTL", 2*time.Hour)
	if err != nil {
		return RedisConfig{}, err
	}

	return RedisConfig{
		Addr:           os.Getenv("REDIS_ADDR"),
		Password:       os.Getenv("REDIS_PASSWORD"),
		DB:             db,
		BookingInfoTTL: infoTTL,
		IdempotencyTTL: idemTTL,
	}, nil
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// getDuration accepts Go durations ("1500ms", "5s") or a plain number of
// seconds.
func getDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
