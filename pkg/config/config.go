package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Rail     RailConfig
	Payment  PaymentConfig
	Session  SessionConfig
	LogLevel string
}

type ServerConfig struct {
	Address      string
	CORSOrigins  []string
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	MaxPoolConns int
}

type RailConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PaymentConfig shapes the checkout session request. The URL templates
// receive the booking id.
type PaymentConfig struct {
	Currency           string
	SuccessURLTemplate string
	CancelURLTemplate  string
}

type SessionConfig struct {
	TTL           time.Duration
	PurgeInterval time.Duration
	CookieSecure  bool
}

func (dc *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s pool_max_conns=%d",
		dc.Host,
		dc.Port,
		dc.Name,
		dc.User,
		dc.Password,
		dc.MaxPoolConns,
	)
}

// NewConfig loads .env if present, then reads the environment with
// defaults. Missing optional values never fail; malformed ones do.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	serverCfg, err := newServerConfig()
	if err != nil {
		return nil, fmt.Errorf("server config error: %w", err)
	}

	dbCfg, err := newDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("database config error: %w", err)
	}

	railCfg, err := newRailConfig()
	if err != nil {
		return nil, fmt.Errorf("rail config error: %w", err)
	}

	sessionCfg, err := newSessionConfig()
	if err != nil {
		return nil, fmt.Errorf("session config error: %w", err)
	}

	return &Config{
		Server:   serverCfg,
		Database: dbCfg,
		Rail:     railCfg,
		Payment:  newPaymentConfig(),
		Session:  sessionCfg,
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
	}, nil
}

func newServerConfig() (ServerConfig, error) {
	writeTimeout, err := getDurationFromEnv("SERVER_WRITE_TIMEOUT", "15s")
	if err != nil {
		return ServerConfig{}, fmt.Errorf("write timeout parse error: %w", err)
	}

	readTimeout, err := getDurationFromEnv("SERVER_READ_TIMEOUT", "15s")
	if err != nil {
		return ServerConfig{}, fmt.Errorf("read timeout parse error: %w", err)
	}

	idleTimeout, err := getDurationFromEnv("SERVER_IDLE_TIMEOUT", "30s")
	if err != nil {
		return ServerConfig{}, fmt.Errorf("idle timeout parse error: %w", err)
	}

	return ServerConfig{
		Address:      getEnvOrDefault("SERVER_ADDRESS", ":5000"),
		CORSOrigins:  []string{getEnvOrDefault("CORS_ORIGIN", "http://localhost:5173")},
		WriteTimeout: writeTimeout,
		ReadTimeout:  readTimeout,
		IdleTimeout:  idleTimeout,
	}, nil
}

func newDatabaseConfig() (DatabaseConfig, error) {
	maxConns, err := strconv.Atoi(getEnvOrDefault("MAX_CONNS", "99"))
	if err != nil {
		return DatabaseConfig{}, fmt.Errorf("max connections parse error: %w", err)
	}

	return DatabaseConfig{
		Host:         getEnvOrDefault("POSTGRES_HOST", "localhost"),
		Port:         getEnvOrDefault("POSTGRES_PORT", "5432"),
		Name:         getEnvOrDefault("POSTGRES_DB", "raildesk"),
		User:         getEnvOrDefault("POSTGRES_USER", "postgres"),
		Password:     getEnvOrDefault("POSTGRES_PASSWORD", ""),
		MaxPoolConns: maxConns,
	}, nil
}

func newRailConfig() (RailConfig, error) {
	timeout, err := getDurationFromEnv("RAIL_TIMEOUT", "15s")
	if err != nil {
		return RailConfig{}, fmt.Errorf("timeout parse error: %w", err)
	}

	return RailConfig{
		BaseURL: getEnvOrDefault("RAIL_URL", "http://localhost:8080"),
		Timeout: timeout,
	}, nil
}

func newPaymentConfig() PaymentConfig {
	return PaymentConfig{
		Currency:           getEnvOrDefault("PAYMENT_CURRENCY", "inr"),
		SuccessURLTemplate: getEnvOrDefault("PAYMENT_SUCCESS_URL", "http://localhost:5173/booking-confirmation?booking_id=%s"),
		CancelURLTemplate:  getEnvOrDefault("PAYMENT_CANCEL_URL", "http://localhost:5173/payment-cancelled?booking_id=%s"),
	}
}

func newSessionConfig() (SessionConfig, error) {
	ttl, err := getDurationFromEnv("SESSION_TTL", "24h")
	if err != nil {
		return SessionConfig{}, fmt.Errorf("ttl parse error: %w", err)
	}

	purge, err := getDurationFromEnv("SESSION_PURGE_INTERVAL", "1h")
	if err != nil {
		return SessionConfig{}, fmt.Errorf("purge interval parse error: %w", err)
	}

	return SessionConfig{
		TTL:           ttl,
		PurgeInterval: purge,
		CookieSecure:  getEnvOrDefault("SESSION_COOKIE_SECURE", "false") == "true",
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationFromEnv(key, defaultValue string) (time.Duration, error) {
	return time.ParseDuration(getEnvOrDefault(key, defaultValue))
}
