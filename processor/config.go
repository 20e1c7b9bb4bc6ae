package processor

import (
	"time"

	"github.com/hugolhafner/krimson/interceptor"
	"github.com/hugolhafner/krimson/kafka"
	"github.com/hugolhafner/krimson/logger"
	"github.com/hugolhafner/krimson/router"
	"github.com/hugolhafner/krimson/serde"
	"github.com/hugolhafner/krimson/telemetry"
)

// Config holds a Processor's construction-time settings.
type Config struct {
	ClientID           string
	GroupID            string
	InputTopics        []string
	DefaultOutputTopic *string

	ValueSerializer   serde.UntypedSerializer
	ValueDeserializer serde.UntypedDeserializer

	Router router.Router
	Client kafka.Client

	Interceptors   []interceptor.Interceptor
	CommitInterval time.Duration

	Logger    logger.Logger
	Telemetry *telemetry.Telemetry
}

func defaultConfig() Config {
	return Config{
		ValueSerializer:   serde.ToUntyped(serde.Bytes()),
		ValueDeserializer: serde.ToUntypedDeserializer[[]byte](byteIdentity{}),
		Logger:            logger.NewNoopLogger(),
		Telemetry:         telemetry.Noop(),
		CommitInterval:    5 * time.Second,
	}
}

// byteIdentity is the default value deserializer: records flow through
// untouched as raw bytes until a caller configures a real deserializer.
type byteIdentity struct{}

func (byteIdentity) Deserialize(_ string, data []byte) ([]byte, error) { return data, nil }

// Option configures a Processor at construction time.
type Option func(*Config)

func WithClientID(id string) Option { return func(c *Config) { c.ClientID = id } }
func WithGroupID(id string) Option  { return func(c *Config) { c.GroupID = id } }
func WithInputTopics(topics ...string) Option {
	return func(c *Config) { c.InputTopics = topics }
}
func WithDefaultOutputTopic(topic string) Option {
	return func(c *Config) { c.DefaultOutputTopic = &topic }
}
func WithValueSerializer(s serde.UntypedSerializer) Option {
	return func(c *Config) { c.ValueSerializer = s }
}
func WithValueDeserializer(d serde.UntypedDeserializer) Option {
	return func(c *Config) { c.ValueDeserializer = d }
}
func WithRouter(r router.Router) Option { return func(c *Config) { c.Router = r } }
func WithClient(client kafka.Client) Option {
	return func(c *Config) { c.Client = client }
}
func WithInterceptors(interceptors ...interceptor.Interceptor) Option {
	return func(c *Config) { c.Interceptors = interceptors }
}
func WithCommitInterval(d time.Duration) Option {
	return func(c *Config) { c.CommitInterval = d }
}
func WithLogger(l logger.Logger) Option { return func(c *Config) { c.Logger = l } }
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(c *Config) { c.Telemetry = t }
}
