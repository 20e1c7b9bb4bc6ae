package reader

import (
	"github.com/hugolhafner/krimson/kafka"
	"github.com/hugolhafner/krimson/logger"
	"github.com/hugolhafner/krimson/telemetry"
)

// Config holds a Reader's construction-time settings.
type Config struct {
	// ClientFactory builds a fresh, transient kafka.Client for each read.
	// Reader never reuses subscription state across calls.
	ClientFactory func() (kafka.Client, error)

	Logger    logger.Logger
	Telemetry *telemetry.Telemetry
}

func defaultConfig() Config {
	return Config{
		Logger:    logger.NewNoopLogger(),
		Telemetry: telemetry.Noop(),
	}
}

// Option configures a Reader at construction time.
type Option func(*Config)

func WithClientFactory(f func() (kafka.Client, error)) Option {
	return func(c *Config) { c.ClientFactory = f }
}

func WithLogger(l logger.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(c *Config) { c.Telemetry = t }
}
