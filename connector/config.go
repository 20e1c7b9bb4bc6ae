package connector

import (
	"time"

	"github.com/hugolhafner/dskit/backoff"
	"github.com/hugolhafner/krimson/interceptor"
	"github.com/hugolhafner/krimson/kafka"
	"github.com/hugolhafner/krimson/logger"
	"github.com/hugolhafner/krimson/telemetry"
)

// Config holds a Runtime's construction-time settings.
type Config struct {
	Name string

	DefaultDestinationTopic *string

	// Client backs the produce side: source records are published through
	// it.
	Client kafka.Client

	// ReaderClientFactory builds the fresh, transient clients the
	// checkpoint manager uses to rehydrate its last-known position per
	// destination topic. Required.
	ReaderClientFactory func() (kafka.Client, error)

	// Synchronous, when true, awaits every produce inline inside
	// ProcessRecord rather than enqueuing it and flushing in bulk.
	Synchronous bool

	// BackOff holds the connector's poll back-off (default: fixed 30s).
	// Runtime does not read it; schedule.New takes its backoff as an
	// argument of its own.
	BackOff backoff.Backoff

	Interceptors []interceptor.Interceptor

	Logger    logger.Logger
	Telemetry *telemetry.Telemetry
}

func defaultConfig() Config {
	return Config{
		BackOff:   backoff.NewFixed(30 * time.Second),
		Logger:    logger.NewNoopLogger(),
		Telemetry: telemetry.Noop(),
	}
}

// Option configures a Runtime at construction time.
type Option func(*Config)

func WithName(name string) Option { return func(c *Config) { c.Name = name } }

func WithDefaultDestinationTopic(topic string) Option {
	return func(c *Config) { c.DefaultDestinationTopic = &topic }
}

func WithClient(client kafka.Client) Option { return func(c *Config) { c.Client = client } }

func WithReaderClientFactory(f func() (kafka.Client, error)) Option {
	return func(c *Config) { c.ReaderClientFactory = f }
}

func WithSynchronous(synchronous bool) Option {
	return func(c *Config) { c.Synchronous = synchronous }
}

func WithBackOff(b backoff.Backoff) Option { return func(c *Config) { c.BackOff = b } }

func WithInterceptors(interceptors ...interceptor.Interceptor) Option {
	return func(c *Config) { c.Interceptors = interceptors }
}

func WithLogger(l logger.Logger) Option { return func(c *Config) { c.Logger = l } }

func WithTelemetry(t *telemetry.Telemetry) Option { return func(c *Config) { c.Telemetry = t } }
