package server

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"feed-proxy/internal/config"
	"feed-proxy/internal/relay"
)

// Container holds all application dependencies
type Container struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Fetcher *relay.HTTPFetcher
	Relay   *relay.Relay
}

// NewContainer creates a new dependency injection container for the given deployment shape
func NewContainer(cfg *config.Config, variant relay.Variant) (*Container, error) {
	logger := logrus.StandardLogger()
	if err := ConfigureLogger(logger, cfg.Log); err != nil {
		return nil, err
	}

	if variant == relay.Managed && cfg.Token == "" {
		return nil, config.ErrMissingToken
	}

	fetcher := relay.NewHTTPFetcher(relay.WithTimeout(cfg.Relay.FetchTimeout))

	entry := logger.WithFields(logrus.Fields{
		"component": "relay",
		"variant":   variant.String(),
	})

	r := relay.New(fetcher,
		relay.WithVariant(variant),
		relay.WithToken(cfg.Token),
		relay.WithCacheMaxAge(cfg.Relay.CacheMaxAge),
		relay.WithFaultPolicy(cfg.Relay.FaultPolicy),
		relay.WithLogger(entry),
	)

	return &Container{
		Config:  cfg,
		Logger:  logger,
		Fetcher: fetcher,
		Relay:   r,
	}, nil
}

// ConfigureLogger applies level and format settings to a logrus logger
func ConfigureLogger(logger *logrus.Logger, cfg config.LogConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.Level, err)
	}
	logger.SetLevel(level)
	logger.SetOutput(os.Stderr)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return nil
}

// Close cleans up all resources
func (c *Container) Close() error {
	if c.Fetcher != nil {
		c.Fetcher.CloseIdleConnections()
	}
	return nil
}
