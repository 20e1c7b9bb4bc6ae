package producer

import (
	"github.com/hugolhafner/krimson/interceptor"
	"github.com/hugolhafner/krimson/kafka"
	"github.com/hugolhafner/krimson/logger"
	"github.com/hugolhafner/krimson/serde"
	"github.com/hugolhafner/krimson/telemetry"
)

// Config holds a Producer's construction-time settings.
type Config struct {
	ClientID     string
	DefaultTopic *string

	ValueSerializer serde.UntypedSerializer

	Client       kafka.Client
	Logger       logger.Logger
	Interceptors *interceptor.Chain
	Telemetry    *telemetry.Telemetry
}

func defaultConfig() Config {
	return Config{
		ValueSerializer: serde.ToUntyped(serde.Bytes()),
		Logger:          logger.NewNoopLogger(),
		Telemetry:       telemetry.Noop(),
	}
}

// Option configures a Producer at construction time.
type Option func(*Config)

func WithClientID(id string) Option {
	return func(c *Config) { c.ClientID = id }
}

// WithDefaultTopic sets the topic used when a ProducerRequest omits one.
func WithDefaultTopic(topic string) Option {
	return func(c *Config) { c.DefaultTopic = &topic }
}

func WithValueSerializer(s serde.UntypedSerializer) Option {
	return func(c *Config) { c.ValueSerializer = s }
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
