package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"paygate/internal/domain"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type Config struct {
	Server     ServerConfig
	Payment    PaymentConfig
	Settlement SettlementConfig
	Provider   ProviderConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	Auth       AuthConfig
	Webhook    WebhookConfig
}

type ServerConfig struct {
	Port            string
	Env             string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RateLimit       int
	RateLimitWindow time.Duration
}

type PaymentConfig struct {
	Mode string
}

type SettlementConfig struct {
	Delay       time.Duration
	SuccessRate float64
}

// ProviderConfig for the upstream Zendfi API (proxy mode only).
type ProviderConfig struct {
	APIKey  string
	BaseURL string
	// Timeout of zero leaves the transport default in place.
	Timeout time.Duration
}

type DatabaseConfig struct {
	Driver          string // memory, mysql, postgres or sqlite
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type AuthConfig struct {
	Enabled   bool
	APIKey    string
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

type WebhookConfig struct {
	Secret       string
	Timeout      time.Duration
	AllowPrivate bool // deliver to loopback and private networks too
}

// LoadEnvFile reads a .env file into the process environment when one exists.
func LoadEnvFile(paths ...string) {
	if err := godotenv.Load(paths...); err != nil {
		slog.Debug("[Config] no .env file loaded", "error", err)
	}
}

// Load builds the configuration from the environment over built-in defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            env("PORT", "8000"),
			Env:             env("APP_ENV", env("NODE_ENV", "development")),
			ReadTimeout:     envDuration("READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    envDuration("WRITE_TIMEOUT", 10*time.Second),
			RateLimit:       envInt("RATE_LIMIT", 100),
			RateLimitWindow: envDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Payment: PaymentConfig{
			Mode: strings.ToLower(env("PAYMENT_MODE", domain.ModeStandalone)),
		},
		Settlement: SettlementConfig{
			Delay:       envDuration("SETTLEMENT_DELAY", 2*time.Second),
			SuccessRate: envFloat("SETTLEMENT_SUCCESS_RATE", 0.9),
		},
		Provider: ProviderConfig{
			APIKey:  env("ZENDFI_API_KEY", ""),
			BaseURL: strings.TrimRight(env("ZENDFI_API_URL", "https://api.zendfi.tech"), "/"),
			Timeout: envDuration("PROVIDER_TIMEOUT", 0),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(env("STORE_DRIVER", "memory")),
			DSN:             env("DATABASE_URL", ""),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Cache: CacheConfig{
			Addr:     env("REDIS_ADDR", ""),
			Password: env("REDIS_PASSWORD", ""),
			DB:       envInt("REDIS_DB", 0),
			TTL:      envDuration("CACHE_TTL", 30*time.Second),
		},
		Auth: AuthConfig{
			Enabled:   envBool("AUTH_ENABLED", false),
			APIKey:    env("API_KEY", ""),
			JWTSecret: env("JWT_SECRET", ""),
			Issuer:    env("JWT_ISSUER", "paygate"),
			TokenTTL:  envDuration("JWT_TTL", time.Hour),
		},
		Webhook: WebhookConfig{
			Secret:       env("WEBHOOK_SECRET", ""),
			Timeout:      envDuration("WEBHOOK_TIMEOUT", 5*time.Second),
			AllowPrivate: envBool("WEBHOOK_ALLOW_PRIVATE", false),
		},
	}
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Payment.Mode {
	case domain.ModeStandalone:
	case domain.ModeProxy:
		if c.Provider.APIKey == "" {
			errs = append(errs, errors.New("ZENDFI_API_KEY is required in proxy mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown PAYMENT_MODE %q", c.Payment.Mode))
	}
	if c.Settlement.SuccessRate < 0 || c.Settlement.SuccessRate > 1 {
		errs = append(errs, fmt.Errorf("SETTLEMENT_SUCCESS_RATE %v out of range [0,1]", c.Settlement.SuccessRate))
	}
	if c.Settlement.Delay <= 0 {
		errs = append(errs, errors.New("SETTLEMENT_DELAY must be positive"))
	}
	switch c.Database.Driver {
	case "memory":
	case "mysql", "postgres", "sqlite":
		if c.Database.DSN == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for STORE_DRIVER=%s", c.Database.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Database.Driver))
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_ENABLED needs API_KEY or JWT_SECRET"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("RATE_LIMIT must not be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// lookup treats blank values as unset.
func lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func env(key, def string) string {
	if v, ok := lookup(key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, ok := lookup(key)
	if !ok {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		slog.Warn("[Config] ignoring invalid integer", "key", key, "value", v)
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v, ok := lookup(key)
	if !ok {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		slog.Warn("[Config] ignoring invalid number", "key", key, "value", v)
		return def
	}
	return f
}

func envBool(key string, def bool) bool {
	v, ok := lookup(key)
	if !ok {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		slog.Warn("[Config] ignoring invalid boolean", "key", key, "value", v)
		return def
	}
	return b
}

// envDuration accepts Go durations ("2s") or bare milliseconds ("2000").
func envDuration(key string, def time.Duration) time.Duration {
	v, ok := lookup(key)
	if !ok {
		return def
	}
	if ms, err := cast.ToInt64E(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		slog.Warn("[Config] ignoring invalid duration", "key", key, "value", v)
		return def
	}
	return d
}
