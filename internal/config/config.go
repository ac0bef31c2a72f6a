package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration
	ProxyTimeout            time.Duration
	ProxyIdleTimeout        time.Duration

	BackendURL     string
	BackendTimeout time.Duration
	UIOriginURL    string

	SessionStore        string
	SessionTTL          time.Duration
	SessionCookieName   string
	SessionCookieSecure bool
	SessionCookieDomain string
	SessionSweepEvery   time.Duration

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CORSOrigins          []string
	RateLimitRPM         int
	AuthRateLimitRPM     int
	ExpiryWarningMinutes int
	LogLevel             string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 0),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ProxyTimeout:            getDuration("PROXY_TIMEOUT", 2*time.Minute),
		ProxyIdleTimeout:        getDuration("PROXY_IDLE_TIMEOUT", 30*time.Second),

		BackendURL:     getEnv("BACKEND_URL", "http://localhost:5000"),
		BackendTimeout: getDuration("BACKEND_TIMEOUT", 10*time.Second),
		UIOriginURL:    getEnv("UI_ORIGIN_URL", "http://localhost:3000"),

		SessionStore:        strings.ToLower(getEnv("SESSION_STORE", StoreMemory)),
		SessionTTL:          getDuration("SESSION_TTL", 24*time.Hour),
		SessionCookieName:   getEnv("SESSION_COOKIE_NAME", "dja_session"),
		SessionCookieSecure: getBool("SESSION_COOKIE_SECURE", false),
		SessionCookieDomain: strings.TrimSpace(os.Getenv("SESSION_COOKIE_DOMAIN")),
		SessionSweepEvery:   getDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),

		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 2)),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		CORSOrigins:          splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		RateLimitRPM:         getInt("RATE_LIMIT_RPM", 300),
		AuthRateLimitRPM:     getInt("AUTH_RATE_LIMIT_RPM", 10),
		ExpiryWarningMinutes: getInt("EXPIRY_WARNING_MINUTES", 5),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if err := absoluteURL("BACKEND_URL", c.BackendURL); err != nil {
		return err
	}

	if err := absoluteURL("UI_ORIGIN_URL", c.UIOriginURL); err != nil {
		return err
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}

	if strings.TrimSpace(c.SessionCookieName) == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME cannot be empty")
	}

	switch c.SessionStore {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when SESSION_STORE=postgres")
		}
	case StoreRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("REDIS_ADDR is required when SESSION_STORE=redis")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be one of memory, postgres, redis; got %q", c.SessionStore)
	}

	if c.ExpiryWarningMinutes <= 0 {
		return fmt.Errorf("EXPIRY_WARNING_MINUTES must be positive")
	}

	return nil
}

func absoluteURL(key string, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute URL", key)
	}
	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
