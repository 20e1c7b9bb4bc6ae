// Package connector implements the source-connector runtime: a scheduled
// or push-driven tick pulls a batch of record.SourceRecord values from a
// DataSourceConnector, deduplicates them against a per-topic checkpoint,
// produces the unseen ones, and advances the checkpoint once delivery is
// confirmed. Grounded on the teacher's runner.Runner activation shape and
// processor's optional-interface (UntypedProcessor-vs-Processor) pattern
// for OnSuccess/OnError, generalized to a single-shot tick instead of a
// long-lived poll loop.
package connector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hugolhafner/krimson/connector/checkpoint"
	"github.com/hugolhafner/krimson/interceptor"
	"github.com/hugolhafner/krimson/producer"
	"github.com/hugolhafner/krimson/reader"
	"github.com/hugolhafner/krimson/record"
)

// DataSourceConnector produces SourceRecords from some external origin
// (a database changefeed, a file, a webhook payload) for one tick's worth
// of TContext — whatever a concrete connector needs to know to do its
// pull (a cursor, a request payload, nothing at all).
type DataSourceConnector[TContext any] interface {
	Name() string
	// ParseRecords returns a channel of SourceRecords for this tick. The
	// channel must close once every record for this tick has been sent.
	ParseRecords(ctx context.Context, tctx TContext) (<-chan *record.SourceRecord, error)
}

// Initializer is an optional interface a DataSourceConnector can implement
// to run one-time setup before its first tick.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// SuccessHandler is an optional interface a DataSourceConnector can
// implement to observe a tick's fully-resolved records.
type SuccessHandler[TContext any] interface {
	OnSuccess(ctx context.Context, tctx TContext, processed []*record.SourceRecord)
}

// ErrorHandler is an optional interface a DataSourceConnector can implement
// to observe a tick that failed before it could resolve.
type ErrorHandler[TContext any] interface {
	OnError(ctx context.Context, tctx TContext, err error)
}

// Runtime drives one DataSourceConnector's tick algorithm: pull, dedup,
// produce, checkpoint.
type Runtime[TContext any] struct {
	cfg       Config
	connector DataSourceConnector[TContext]

	identity interceptor.Identity
	chain    *interceptor.Chain

	producer    *producer.Producer
	checkpoints *checkpoint.Manager

	initOnce sync.Once
	initErr  error
}

// New builds a Runtime around connector. Client and ReaderClientFactory are
// required.
func New[TContext any](connector DataSourceConnector[TContext], opts ...Option) (*Runtime[TContext], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if connector == nil {
		return nil, newConfigurationError("no connector supplied")
	}
	if cfg.Client == nil {
		return nil, newConfigurationError("no kafka.Client configured")
	}
	if cfg.ReaderClientFactory == nil {
		return nil, newConfigurationError("no reader client factory configured")
	}
	if cfg.Name == "" {
		cfg.Name = connector.Name()
	}

	identity := interceptor.Identity{Name: cfg.Name}
	chain := interceptor.NewChain(cfg.Logger, cfg.Interceptors...).WithBuiltins(identity)

	prod, err := producer.New(
		producer.WithClientID(cfg.Name),
		producer.WithClient(cfg.Client),
		producer.WithLogger(cfg.Logger),
		producer.WithInterceptors(chain),
		producer.WithTelemetry(cfg.Telemetry),
		defaultTopicOption(cfg.DefaultDestinationTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("connector: build producer: %w", err)
	}

	r, err := reader.New(
		reader.WithClientFactory(cfg.ReaderClientFactory),
		reader.WithLogger(cfg.Logger),
		reader.WithTelemetry(cfg.Telemetry),
	)
	if err != nil {
		return nil, fmt.Errorf("connector: build reader: %w", err)
	}

	return &Runtime[TContext]{
		cfg:         cfg,
		connector:   connector,
		identity:    identity,
		chain:       chain,
		producer:    prod,
		checkpoints: checkpoint.NewManager(r, chain, identity, cfg.Logger),
	}, nil
}

func defaultTopicOption(topic *string) producer.Option {
	if topic == nil {
		return func(*producer.Config) {}
	}
	return producer.WithDefaultTopic(*topic)
}

// Process runs one full tick: lazily initialize, pull records, dedup and
// produce them, await delivery, and advance checkpoints. A tick-level
// failure (initialize, parse records, flush, or awaiting delivery) is
// reported through the interceptor chain and OnError (if implemented) and is
// also returned, so a caller such as schedule.Scheduler can back off on it.
// A single record's produce failure only Naks that record; the tick still
// succeeds.
func (rt *Runtime[TContext]) Process(ctx context.Context, tctx TContext) error {
	rt.cfg.Telemetry.ConnectorTicks.Add(ctx, 1)

	if err := rt.initialize(ctx); err != nil {
		wrapped := fmt.Errorf("connector: initialize: %w", err)
		rt.handleError(ctx, tctx, wrapped)
		return wrapped
	}

	records, err := rt.pull(ctx, tctx)
	if err != nil {
		rt.handleError(ctx, tctx, err)
		return err
	}

	for _, rec := range records {
		rt.processRecord(ctx, rec)
	}

	if !rt.cfg.Synchronous {
		if err := rt.producer.Flush(ctx); err != nil {
			wrapped := fmt.Errorf("connector: flush: %w", err)
			rt.handleError(ctx, tctx, wrapped)
			return wrapped
		}
	}

	for _, rec := range records {
		if err := rec.EnsureProcessed(ctx); err != nil {
			wrapped := fmt.Errorf("connector: await delivery: %w", err)
			rt.handleError(ctx, tctx, wrapped)
			return wrapped
		}
	}

	rt.advanceCheckpoints(ctx, records)
	rt.handleSuccess(ctx, tctx, records)
	return nil
}

func (rt *Runtime[TContext]) initialize(ctx context.Context) error {
	init, ok := rt.connector.(Initializer)
	if !ok {
		return nil
	}
	rt.initOnce.Do(func() {
		rt.initErr = init.Initialize(ctx)
	})
	return rt.initErr
}

func (rt *Runtime[TContext]) pull(ctx context.Context, tctx TContext) ([]*record.SourceRecord, error) {
	ch, err := rt.connector.ParseRecords(ctx, tctx)
	if err != nil {
		return nil, fmt.Errorf("connector: parse records: %w", err)
	}

	var records []*record.SourceRecord
	for rec := range ch {
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].EventTime < records[j].EventTime })
	return records, nil
}

// processRecord defaults a record's source/destination, dedups it against
// the destination topic's checkpoint, and produces it — synchronously or
// asynchronously per Config.Synchronous.
func (rt *Runtime[TContext]) processRecord(ctx context.Context, rec *record.SourceRecord) {
	if rec.Source == "" {
		rec.Source = rt.cfg.Name
	}
	if rec.DestinationTopic == "" && rt.cfg.DefaultDestinationTopic != nil {
		rec.DestinationTopic = *rt.cfg.DefaultDestinationTopic
	}
	if rec.DestinationTopic == "" {
		rec.Nak(ErrNoDestinationTopic)
		return
	}

	ckpt, err := rt.checkpoints.GetCheckpoint(ctx, rec.DestinationTopic)
	if err != nil {
		rec.Nak(fmt.Errorf("connector: get checkpoint: %w", err))
		return
	}
	if !ckpt.IsZero() && rec.EventTime <= ckpt.EventTimeMillis {
		rec.Skip()
		return
	}

	req := rec.ToProducerRequest()
	out := record.PendingOutput{
		Topic:     req.Topic,
		Key:       req.Key,
		Value:     req.Value,
		Headers:   req.Headers,
		EventTime: req.EventTime,
		RequestID: req.RequestID,
	}

	if rt.cfg.Synchronous {
		res, err := rt.producer.ProduceSync(ctx, out, false)
		if err != nil {
			rec.Nak(err)
			return
		}
		applyProduceResult(rec, *res)
		return
	}

	rt.producer.Produce(ctx, out, func(res record.ProducerResult) {
		applyProduceResult(rec, res)
	})
}

func applyProduceResult(rec *record.SourceRecord, res record.ProducerResult) {
	if res.Success {
		rec.Ack(res.RecordID)
		return
	}
	rec.Nak(res.Err)
}

// advanceCheckpoints buckets rt's resolved records by destination topic and
// tracks the greatest event time observed in each bucket. Skipped and
// nak'd records never advance a checkpoint.
func (rt *Runtime[TContext]) advanceCheckpoints(ctx context.Context, records []*record.SourceRecord) {
	byTopic := make(map[string]*record.SourceRecord)
	for _, rec := range records {
		if rec.State().Kind != record.Acked {
			continue
		}
		current, ok := byTopic[rec.DestinationTopic]
		if !ok || rec.EventTime > current.EventTime {
			byTopic[rec.DestinationTopic] = rec
		}
	}

	for topic, last := range byTopic {
		rt.checkpoints.TrackCheckpoint(topic, record.Checkpoint{
			RecordID: last.State().RecordID, EventTimeMillis: last.EventTime,
		})
		rt.cfg.Telemetry.CheckpointAdvances.Add(ctx, 1)
		rt.cfg.Logger.Info(
			"connector: checkpoint advanced", "topic", topic, "event_time_millis", last.EventTime,
		)
	}
}

func (rt *Runtime[TContext]) handleSuccess(ctx context.Context, tctx TContext, records []*record.SourceRecord) {
	rt.cfg.Logger.Info("connector: tick complete", "name", rt.cfg.Name, "records", len(records))

	handler, ok := rt.connector.(SuccessHandler[TContext])
	if !ok {
		return
	}
	rt.invokeIsolated(func() { handler.OnSuccess(ctx, tctx, records) })
}

func (rt *Runtime[TContext]) handleError(ctx context.Context, tctx TContext, err error) {
	rt.chain.Fire(interceptor.ConsumerErrorEvent{Identity: rt.identity, Err: err, Fatal: false})
	rt.cfg.Telemetry.Errors.Add(ctx, 1)

	handler, ok := rt.connector.(ErrorHandler[TContext])
	if !ok {
		return
	}
	rt.invokeIsolated(func() { handler.OnError(ctx, tctx, err) })
}

func (rt *Runtime[TContext]) invokeIsolated(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			rt.chain.Fire(
				interceptor.ConsumerErrorEvent{
					Identity: rt.identity,
					Err:      fmt.Errorf("connector: success/error handler panicked: %v", r),
					Fatal:    false,
				},
			)
		}
	}()
	fn()
}
