package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"feed-proxy/internal/relay"
)

// ErrMissingToken is returned when the managed function starts without a TOKEN
var ErrMissingToken = errors.New("TOKEN environment variable is required")

// MinFetchTimeout is the shortest accepted FETCH_TIMEOUT
const MinFetchTimeout = time.Millisecond

// Config holds all configuration for the application
type Config struct {
	Environment string
	Host        string
	Port        string
	Token       string
	Relay       RelayConfig
	Log         LogConfig
	RateLimit   RateLimitConfig
	Swagger     bool
}

// RelayConfig holds upstream fetch configuration
type RelayConfig struct {
	FetchTimeout time.Duration
	CacheMaxAge  int
	FaultPolicy  relay.FaultPolicy
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string // "text" or "json"
}

// RateLimitConfig holds the standalone server rate limit; zero RPS disables it
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load loads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("HOST", "127.0.0.1")
	v.SetDefault("PORT", "8001")
	v.SetDefault("FETCH_TIMEOUT", relay.DefaultFetchTimeout.String())
	v.SetDefault("CACHE_MAX_AGE", relay.DefaultCacheMaxAge)
	v.SetDefault("FAULT_POLICY", string(relay.FaultPropagate))
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("RATE_LIMIT_RPS", 0)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("SWAGGER_ENABLED", false)

	policy, err := relay.ParseFaultPolicy(v.GetString("FAULT_POLICY"))
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parseTimeout("FETCH_TIMEOUT", v.GetString("FETCH_TIMEOUT"))
	if err != nil {
		return nil, err
	}

	config := &Config{
		Environment: v.GetString("ENVIRONMENT"),
		Host:        v.GetString("HOST"),
		Port:        v.GetString("PORT"),
		Token:       v.GetString("TOKEN"),
		Relay: RelayConfig{
			FetchTimeout: fetchTimeout,
			CacheMaxAge:  v.GetInt("CACHE_MAX_AGE"),
			FaultPolicy:  policy,
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:             v.GetInt("RATE_LIMIT_BURST"),
		},
		Swagger: v.GetBool("SWAGGER_ENABLED"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadManaged loads configuration for the managed function, which refuses to start without a TOKEN
func LoadManaged() (*Config, error) {
	config, err := GetOptimizedConfig()
	if err != nil {
		return nil, err
	}

	if config.Token == "" {
		return nil, ErrMissingToken
	}

	return config, nil
}

// Validate checks the configuration for unusable values
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid PORT %q: must be a number between 1 and 65535", c.Port)
	}

	if c.Relay.FetchTimeout < MinFetchTimeout {
		return fmt.Errorf("invalid FETCH_TIMEOUT %s: must be at least %s", c.Relay.FetchTimeout, MinFetchTimeout)
	}

	if c.Relay.CacheMaxAge < 0 {
		return fmt.Errorf("invalid CACHE_MAX_AGE %d: must not be negative", c.Relay.CacheMaxAge)
	}

	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("invalid RATE_LIMIT_RPS %v: must not be negative", c.RateLimit.RequestsPerSecond)
	}

	return nil
}

// Addr returns the host:port the standalone server listens on
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// IsProduction reports whether the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// parseTimeout reads a bare number as seconds and anything else as a Go duration
func parseTimeout(key, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) {
			return 0, fmt.Errorf("invalid %s %q: must be finite", key, raw)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}
