// Package router supplies the reference Router implementation applications
// compose against: a predicate-to-handler dispatch table plus the
// RouterContext a handler uses to inspect the input record and accumulate
// outputs. The processor package treats Router as opaque (spec §4.5 design
// note); this package is the concrete building block, grounded on the
// teacher's kstream Filter/Map/Branch stream-shaping primitives repurposed
// from a DAG of typed streams onto a single per-record handler chain.
package router

import (
	"context"
	"fmt"

	"github.com/hugolhafner/krimson/logger"
	"github.com/hugolhafner/krimson/record"
)

// Router selects and runs a handler for a consumed record. CanRoute decides
// whether the record should be handled at all; a false result causes the
// processor to skip it (TrackPosition + InputSkipped, no handler invoked).
type Router interface {
	CanRoute(rec *record.Record) bool
	Process(ctx *RouterContext) error
}

// Handler processes one record within an already-accepted route.
type Handler interface {
	Handle(ctx *RouterContext) error
}

// HandlerFunc adapts a plain function to a Handler.
type HandlerFunc func(ctx *RouterContext) error

func (f HandlerFunc) Handle(ctx *RouterContext) error { return f(ctx) }

// RouterContext is handed to a Handler for exactly one record. It carries
// the deserialized input value, a per-record contextual logger, the
// processor's termination token, and accumulates PendingOutputs via Forward
// / ForwardTo. The processor serializes each accumulated output right
// before producing it — the router deals in values, never in wire bytes.
type RouterContext struct {
	ctx          context.Context
	record       *record.Record
	logger       logger.Logger
	defaultTopic *string
	outputs      []record.PendingOutput
}

// NewContext builds a RouterContext for rec. defaultTopic may be nil.
func NewContext(ctx context.Context, rec *record.Record, l logger.Logger, defaultTopic *string) *RouterContext {
	if l == nil {
		l = logger.NewNoopLogger()
	}
	return &RouterContext{
		ctx: ctx, record: rec, defaultTopic: defaultTopic,
		logger: l.With("topic", rec.Topic, "partition", rec.Partition, "offset", rec.Offset, "record_id", rec.RecordID),
	}
}

// Context returns the processor's linked termination token.
func (c *RouterContext) Context() context.Context { return c.ctx }

// Record returns the input record being processed.
func (c *RouterContext) Record() *record.Record { return c.record }

// Value returns the input record's deserialized value.
func (c *RouterContext) Value() any { return c.record.Value }

// Key returns the input record's raw key.
func (c *RouterContext) Key() []byte { return c.record.Key }

// Logger returns a logger pre-populated with this record's position fields.
func (c *RouterContext) Logger() logger.Logger { return c.logger }

// Forward appends value to the default output topic. Returns an error if
// no default topic is configured.
func (c *RouterContext) Forward(value any) error {
	if c.defaultTopic == nil {
		return fmt.Errorf("router: Forward called with no default output topic configured")
	}
	return c.ForwardTo(*c.defaultTopic, value)
}

// ForwardTo appends value to topic, carrying the input record's key,
// headers, and event time forward unless overridden by ForwardOption.
func (c *RouterContext) ForwardTo(topic string, value any, opts ...ForwardOption) error {
	out := record.PendingOutput{
		Topic: &topic, Key: c.record.Key, Value: value,
		Headers: c.record.Headers, EventTime: c.record.EventTime,
	}
	for _, opt := range opts {
		opt(&out)
	}
	c.outputs = append(c.outputs, out)
	return nil
}

// ForwardOption customizes a single ForwardTo call.
type ForwardOption func(*record.PendingOutput)

func WithKey(key []byte) ForwardOption { return func(o *record.PendingOutput) { o.Key = key } }
func WithHeaders(h []record.Header) ForwardOption {
	return func(o *record.PendingOutput) { o.Headers = h }
}
func WithEventTime(ms int64) ForwardOption {
	return func(o *record.PendingOutput) { o.EventTime = ms }
}
func WithRequestID(id string) ForwardOption {
	return func(o *record.PendingOutput) { o.RequestID = id }
}

// GeneratedOutput returns every output accumulated by the handler so far.
func (c *RouterContext) GeneratedOutput() []record.PendingOutput { return c.outputs }
