// Package telemetry holds the OpenTelemetry instruments krimson's processor,
// producer, and connector packages report through. All providers are
// optional; when none are configured every instrument is a zero-overhead
// noop, matching the ambient-but-out-of-scope treatment spec.md gives
// telemetry sinks: the core emits instrumentation, applications decide
// where it goes.
package telemetry

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const scopeName = "github.com/hugolhafner/krimson"

// Telemetry holds every instrument krimson's core packages use.
type Telemetry struct {
	Tracer     trace.Tracer
	Propagator propagation.TextMapPropagator

	MessagesConsumed metric.Int64Counter
	PollDuration     metric.Float64Histogram

	ProcessDuration metric.Float64Histogram
	InputsProcessed metric.Int64Counter
	InputsSkipped   metric.Int64Counter

	MessagesProduced metric.Int64Counter
	ProduceDuration  metric.Float64Histogram

	Errors metric.Int64Counter

	TasksActive metric.Int64UpDownCounter

	CheckpointAdvances metric.Int64Counter
	ConnectorTicks     metric.Int64Counter
}

// New builds a Telemetry from the given providers. Any nil provider is
// defaulted to a noop implementation.
func New(tp trace.TracerProvider, mp metric.MeterProvider, prop propagation.TextMapPropagator) (*Telemetry, error) {
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	if prop == nil {
		prop = propagation.TraceContext{}
	}

	tracer := tp.Tracer(scopeName)
	meter := mp.Meter(scopeName)

	messagesConsumed, err := meter.Int64Counter(
		"krimson.consumer.messages", metric.WithDescription("Records consumed"),
	)
	if err != nil {
		return nil, err
	}

	pollDuration, err := meter.Float64Histogram(
		"krimson.consumer.poll.duration", metric.WithDescription("Time per Poll() call"), metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	processDuration, err := meter.Float64Histogram(
		"krimson.processor.process.duration",
		metric.WithDescription("End-to-end record processing time"), metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	inputsProcessed, err := meter.Int64Counter(
		"krimson.processor.inputs.processed", metric.WithDescription("Inputs whose outputs all succeeded"),
	)
	if err != nil {
		return nil, err
	}

	inputsSkipped, err := meter.Int64Counter(
		"krimson.processor.inputs.skipped", metric.WithDescription("Inputs the router declined"),
	)
	if err != nil {
		return nil, err
	}

	messagesProduced, err := meter.Int64Counter(
		"krimson.producer.messages", metric.WithDescription("Records produced"),
	)
	if err != nil {
		return nil, err
	}

	produceDuration, err := meter.Float64Histogram(
		"krimson.producer.produce.duration", metric.WithDescription("Time per Produce() delivery"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errs, err := meter.Int64Counter(
		"krimson.errors", metric.WithDescription("Errors encountered across the pipeline"),
	)
	if err != nil {
		return nil, err
	}

	tasksActive, err := meter.Int64UpDownCounter(
		"krimson.processor.active", metric.WithDescription("Records currently being processed by a processor"),
	)
	if err != nil {
		return nil, err
	}

	checkpointAdvances, err := meter.Int64Counter(
		"krimson.connector.checkpoint.advances", metric.WithDescription("Checkpoint advances per destination topic"),
	)
	if err != nil {
		return nil, err
	}

	connectorTicks, err := meter.Int64Counter(
		"krimson.connector.ticks", metric.WithDescription("Connector poll ticks"),
	)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Tracer:             tracer,
		Propagator:         prop,
		MessagesConsumed:   messagesConsumed,
		PollDuration:       pollDuration,
		ProcessDuration:    processDuration,
		InputsProcessed:    inputsProcessed,
		InputsSkipped:      inputsSkipped,
		MessagesProduced:   messagesProduced,
		ProduceDuration:    produceDuration,
		Errors:             errs,
		TasksActive:        tasksActive,
		CheckpointAdvances: checkpointAdvances,
		ConnectorTicks:     connectorTicks,
	}, nil
}

// Noop returns a Telemetry with every instrument a zero-overhead noop.
func Noop() *Telemetry {
	t, _ := New(nil, nil, nil)
	return t
}
