package consumer

import (
	"time"

	"github.com/hugolhafner/krimson/interceptor"
	"github.com/hugolhafner/krimson/kafka"
	"github.com/hugolhafner/krimson/logger"
	"github.com/hugolhafner/krimson/telemetry"
)

// RebalanceHooks lets an owning processor observe and drive the
// flush-then-commit protocol around a rebalance, without the consumer
// package depending on processor.
type RebalanceHooks struct {
	// BeforeRevoke runs synchronously before the partitions are released,
	// e.g. to flush a producer and commit outstanding offsets.
	BeforeRevoke func()
	// BeforeLost mirrors BeforeRevoke for the "already lost" case. The
	// partition may already belong to another consumer by the time a commit
	// lands, but flushing and attempting the commit is still run the same
	// way as a clean revoke.
	BeforeLost func()
}

// Config holds an Adapter's construction-time settings.
type Config struct {
	ClientID string
	GroupID  string
	Topics   []string

	Client       kafka.Client
	Logger       logger.Logger
	Interceptors *interceptor.Chain
	Telemetry    *telemetry.Telemetry
	Rebalance    RebalanceHooks

	// CommitInterval is the auto-commit cadence of tracked, ready-to-commit
	// offsets. Zero uses the package default of 5 seconds.
	CommitInterval time.Duration
}

func defaultConfig() Config {
	return Config{
		Logger:         logger.NewNoopLogger(),
		Telemetry:      telemetry.Noop(),
		CommitInterval: 5 * time.Second,
	}
}

// Option configures an Adapter at construction time.
type Option func(*Config)

func WithClientID(id string) Option {
	return func(c *Config) { c.ClientID = id }
}

func WithGroupID(id string) Option {
	return func(c *Config) { c.GroupID = id }
}

func WithTopics(topics ...string) Option {
	return func(c *Config) { c.Topics = topics }
}

func WithClient(client kafka.Client) Option {
	return func(c *Config) { c.Client = client }
}

func WithLogger(l logger.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

func WithInterceptors(chain *interceptor.Chain) Option {
	return func(c *Config) { c.Interceptors = chain }
}

func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(c *Config) { c.Telemetry = t }
}

func WithRebalanceHooks(h RebalanceHooks) Option {
	return func(c *Config) { c.Rebalance = h }
}

func WithCommitInterval(d time.Duration) Option {
	return func(c *Config) { c.CommitInterval = d }
}
