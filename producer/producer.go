// Package producer wraps a kafka.Client's produce surface with default-topic
// resolution, value serialization (keys pass through as bytes), in-flight
// tracking for Flush, and
// interceptor/telemetry reporting, per the async-produce contract in
// spec.md §4.2.
package producer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hugolhafner/krimson/interceptor"
	"github.com/hugolhafner/krimson/kafka"
	"github.com/hugolhafner/krimson/record"
	"github.com/hugolhafner/krimson/telemetry"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// Producer produces records asynchronously, tracking in-flight deliveries so
// Flush can block until they all land.
type Producer struct {
	cfg    Config
	client kafka.Client

	identity interceptor.Identity
	chain    *interceptor.Chain

	inflight sync.WaitGroup
	closing  sync.Once
	closed   chan struct{}
}

// New builds a Producer. WithClient is required.
func New(opts ...Option) (*Producer, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Client == nil {
		return nil, newConfigurationError("no kafka.Client configured")
	}

	chain := cfg.Interceptors
	if chain == nil {
		chain = interceptor.NewChain(cfg.Logger)
	}

	return &Producer{
		cfg:    cfg,
		client: cfg.Client,
		identity: interceptor.Identity{
			Name: cfg.ClientID,
		},
		chain:  chain,
		closed: make(chan struct{}),
	}, nil
}

// Produce enqueues req for asynchronous delivery. cb is invoked exactly once,
// possibly from a different goroutine.
func (p *Producer) Produce(ctx context.Context, out record.PendingOutput, cb kafka.DeliveryCallback) {
	select {
	case <-p.closed:
		if cb != nil {
			cb(record.ProducerResult{Success: false, Err: ErrClosed})
		}
		return
	default:
	}

	req, err := p.resolve(out)
	if err != nil {
		if cb != nil {
			cb(record.ProducerResult{Success: false, Err: err})
		}
		return
	}

	ctx, span := p.cfg.Telemetry.Tracer.Start(ctx, "producer.Produce")
	span.SetAttributes(telemetry.AttrOutputTopic.String(topicOf(req)))

	start := time.Now()
	p.inflight.Add(1)
	p.client.Produce(ctx, req, func(res record.ProducerResult) {
		defer p.inflight.Done()
		defer span.End()

		elapsed := time.Since(start).Seconds()
		p.cfg.Telemetry.ProduceDuration.Record(ctx, elapsed)

		status := telemetry.ProduceStatusSuccess
		if !res.Success {
			status = telemetry.ProduceStatusFailure
			span.SetStatus(codes.Error, "")
			if res.Err != nil {
				span.RecordError(res.Err)
			}
			p.cfg.Telemetry.Errors.Add(ctx, 1, metric.WithAttributes(telemetry.AttrErrorPhase.String(telemetry.ErrorPhaseProduce)))
		}
		p.cfg.Telemetry.MessagesProduced.Add(ctx, 1, metric.WithAttributes(telemetry.AttrProduceStatus.String(status)))

		p.chain.Fire(interceptor.OutputProcessedEvent{
			Identity: p.identity,
			Request:  req,
			Result:   res,
		})

		if cb != nil {
			cb(res)
		}
	})
}

// ProduceSync produces req and blocks for its delivery result. If
// throwOnError is true, a failed delivery is returned as err instead of
// being folded into the returned ProducerResult.
func (p *Producer) ProduceSync(ctx context.Context, out record.PendingOutput, throwOnError bool) (*record.ProducerResult, error) {
	resultCh := make(chan record.ProducerResult, 1)
	p.Produce(ctx, out, func(res record.ProducerResult) {
		resultCh <- res
	})

	select {
	case res := <-resultCh:
		if throwOnError && !res.Success {
			return &res, res.Err
		}
		return &res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Flush blocks until the underlying client has flushed and every in-flight
// delivery callback has run.
func (p *Producer) Flush(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		return fmt.Errorf("producer: flush: %w", err)
	}

	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes then marks the producer closed. Idempotent.
func (p *Producer) Close(ctx context.Context) error {
	var err error
	p.closing.Do(func() {
		err = p.Flush(ctx)
		close(p.closed)
	})
	return err
}

func (p *Producer) resolve(out record.PendingOutput) (record.ProducerRequest, error) {
	topic := out.Topic
	if topic == nil {
		topic = p.cfg.DefaultTopic
	}
	if topic == nil {
		return record.ProducerRequest{}, newConfigurationError("request has no topic and no default topic is configured")
	}

	value, err := p.cfg.ValueSerializer.Serialize(*topic, out.Value)
	if err != nil {
		return record.ProducerRequest{}, fmt.Errorf("producer: serialize value: %w", err)
	}

	return record.ProducerRequest{
		Topic:     topic,
		Key:       out.Key,
		Value:     value,
		Headers:   out.Headers,
		EventTime: out.EventTime,
		RequestID: out.RequestID,
	}, nil
}

func topicOf(req record.ProducerRequest) string {
	if req.Topic == nil {
		return ""
	}
	return *req.Topic
}
