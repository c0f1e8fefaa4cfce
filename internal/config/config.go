package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Auth     AuthConfig
	Log      LogConfig
	Booking  BookingConfig
	Cache    CacheConfig
	Jobs     JobsConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
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

// DSN renders the connection string pgxpool expects.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}

// RabbitMQConfig configures the outbound notification queue. An empty URL
// disables publishing and the delivery consumer.
type RabbitMQConfig struct {
	URL      string
	Queue    string
	Prefetch int
}

type AuthConfig struct {
	JWTSecret string
}

type LogConfig struct {
	Level  string
	Format string
}

type BookingConfig struct {
	RateLimit  int
	RateWindow time.Duration
}

type CacheConfig struct {
	CalendarTTL    time.Duration
	IdempotencyTTL time.Duration
}

type JobsConfig struct {
	SweepInterval time.Duration
	PurgeAfter    time.Duration
}

// New reads the configuration from the environment, loading a .env file
// first when one exists.
func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	var errs []error
	num := func(key string, def int) int {
		v, err := intEnv(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	dur := func(key string, def time.Duration) time.Duration {
		v, err := durationEnv(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: stringEnv("SERVER_HOST", "localhost"),
			Port: num("SERVER_PORT", 8080),
		},
		Postgres: PostgresConfig{
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Name:     os.Getenv("POSTGRES_DB"),
			Host:     stringEnv("POSTGRES_HOST", "localhost"),
			Port:     num("POSTGRES_PORT", 5432),
			SSLMode:  stringEnv("POSTGRES_SSLMODE", "disable"),
			MaxConns: int32(num("POSTGRES_MAX_CONNS", 0)),
		},
		Redis: RedisConfig{
			Addr:     stringEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       num("REDIS_DB", 0),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      os.Getenv("RABBITMQ_URL"),
			Queue:    stringEnv("RABBITMQ_QUEUE", "notifications.dispatched"),
			Prefetch: num("RABBITMQ_PREFETCH", 50),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
		},
		Log: LogConfig{
			Level:  stringEnv("LOG_LEVEL", "info"),
			Format: stringEnv("LOG_FORMAT", "json"),
		},
		Booking: BookingConfig{
			RateLimit:  num("BOOKING_RATE_LIMIT", 10),
			RateWindow: dur("BOOKING_RATE_WINDOW", time.Minute),
		},
		Cache: CacheConfig{
			CalendarTTL:    dur("CACHE_CALENDAR_TTL", 5*time.Minute),
			IdempotencyTTL: dur("IDEMPOTENCY_TTL", 2*time.Hour),
		},
		Jobs: JobsConfig{
			SweepInterval: dur("SWEEP_INTERVAL", time.Minute),
			PurgeAfter:    dur("PROFILE_PURGE_AFTER", 30*24*time.Hour),
		},
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return cfg, nil
}

// Validate reports every missing or out of range setting at once.
func (c *Config) Validate() error {
	var errs []error

	required := []struct{ key, val string }{
		{"POSTGRES_USER", c.Postgres.User},
		{"POSTGRES_PASSWORD", c.Postgres.Password},
		{"POSTGRES_DB", c.Postgres.Name},
		{"JWT_SECRET", c.Auth.JWTSecret},
	}
	for _, r := range required {
		if r.val == "" {
			errs = append(errs, fmt.Errorf("missing %s", r.key))
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid SERVER_PORT: %d", c.Server.Port))
	}
	if c.Booking.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("invalid BOOKING_RATE_LIMIT: %d", c.Booking.RateLimit))
	}
	if c.Booking.RateLimit > 0 && c.Booking.RateWindow <= 0 {
		errs = append(errs, errors.New("BOOKING_RATE_WINDOW must be positive"))
	}
	if c.Jobs.SweepInterval <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must be positive"))
	}

	return errors.Join(errs...)
}

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
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

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
