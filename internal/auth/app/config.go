package app

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingSecret is returned by Validate when AUTH_SECRET is unset.
var ErrMissingSecret = errors.New("AUTH_SECRET must be set")

type Config struct {
	Secret     string        // Required: HS256 key for session tokens
	Issuer     string        // Optional: issuer claim for tokens (default: portal-auth)
	SessionTTL time.Duration // Optional: session lifetime (default: 8h)

	StoreDriver  string // Optional: memory or sqlite (default: memory)
	DatabaseFile string // Optional: path to SQLite database file (default: ./auth.db)
	PepperFile   string // Optional: path to file containing pepper for password hashing (default: ./pepper)

	RedisAddr     string // Optional: when set, email codes live in redis
	RedisPassword string
	RedisDB       int

	SeedDemoUsers bool   // Optional: create the demo accounts on start (default: true outside production)
	MFAIssuer     string // Optional: label shown in authenticator apps (default: UI-RND)

	PortalUpstream string   // Optional: dashboard origin the gate proxies to
	TrustedProxies []string // Optional: proxy addresses/CIDRs whose X-Forwarded-For is believed

	Env                  string        // Environment (development, staging, production) (default: development)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Secret:     os.Getenv("AUTH_SECRET"),
		Issuer:     getEnvOrDefault("AUTH_ISSUER", "portal-auth"),
		SessionTTL: getEnvDurationOrDefault("AUTH_SESSION_TTL", 8*time.Hour),

		StoreDriver:  strings.ToLower(getEnvOrDefault("AUTH_STORE", "memory")),
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),

		MFAIssuer:      getEnvOrDefault("AUTH_MFA_ISSUER", "UI-RND"),
		PortalUpstream: os.Getenv("PORTAL_UPSTREAM"),
		TrustedProxies: getEnvListOrDefault("TRUSTED_PROXIES", nil),

		Env:                  getEnvOrDefault("ENV", "development"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	cfg.SeedDemoUsers = getEnvBoolOrDefault("AUTH_SEED_DEMO_USERS", !cfg.IsProduction())

	return cfg
}

// IsProduction reports whether cookies must be Secure and OTP hints hidden.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Validate reports configuration the service cannot start with.
func (c Config) Validate() error {
	if c.Secret == "" {
		return ErrMissingSecret
	}
	switch c.StoreDriver {
	case "memory", "sqlite":
	default:
		return errors.New("AUTH_STORE must be memory or sqlite, got " + strconv.Quote(c.StoreDriver))
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvListOrDefault splits a comma separated value, dropping empty items.
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// "1h", "30m", "90s"
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
