// Package processor implements the core status-machine processor: subscribe
// to input topics, dispatch each record through a router.Router, produce
// its outputs, and track the input's position only once every output has a
// successful delivery. Grounded on the teacher's runner/singlethreaded.go
// activation/shutdown shape, replacing its topology-of-typed-processors
// engine with a single router dispatch per record.
package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hugolhafner/krimson/consumer"
	"github.com/hugolhafner/krimson/interceptor"
	"github.com/hugolhafner/krimson/producer"
	"github.com/hugolhafner/krimson/record"
	"github.com/hugolhafner/krimson/router"
	"github.com/hugolhafner/krimson/telemetry"
	"go.opentelemetry.io/otel/metric"
)

// OnTerminated is invoked exactly once, after a Processor fully terminates.
type OnTerminated func(p *Processor, gaps []record.SubscriptionTopicGap, err error)

// Processor drives the consume → route → produce → track loop against one
// or more input topics.
type Processor struct {
	cfg      Config
	identity interceptor.Identity
	chain    *interceptor.Chain

	consumer *consumer.Adapter
	producer *producer.Producer

	mu     sync.Mutex
	status Status
	gaps   []record.SubscriptionTopicGap

	pctx         context.Context
	cancel       context.CancelFunc
	onTerminated OnTerminated

	tasksActive int64
}

// New builds a Processor. Client and Router are required; at least one
// input topic must be configured.
func New(opts ...Option) (*Processor, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Client == nil {
		return nil, newConfigurationError("no kafka.Client configured")
	}
	if cfg.Router == nil {
		return nil, newConfigurationError("no router configured")
	}
	if len(cfg.InputTopics) == 0 {
		return nil, newConfigurationError("no input topics configured")
	}

	identity := interceptor.Identity{Name: cfg.ClientID, GroupID: cfg.GroupID}
	chain := interceptor.NewChain(cfg.Logger, cfg.Interceptors...).WithBuiltins(identity)

	prod, err := producer.New(
		producer.WithClientID(cfg.ClientID),
		producer.WithClient(cfg.Client),
		producer.WithValueSerializer(cfg.ValueSerializer),
		producer.WithLogger(cfg.Logger),
		producer.WithInterceptors(chain),
		producer.WithTelemetry(cfg.Telemetry),
		defaultTopicOption(cfg.DefaultOutputTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("processor: build producer: %w", err)
	}

	cons, err := consumer.New(
		consumer.WithClientID(cfg.ClientID),
		consumer.WithGroupID(cfg.GroupID),
		consumer.WithTopics(cfg.InputTopics...),
		consumer.WithClient(cfg.Client),
		consumer.WithLogger(cfg.Logger),
		consumer.WithInterceptors(chain),
		consumer.WithTelemetry(cfg.Telemetry),
		consumer.WithCommitInterval(cfg.CommitInterval),
		consumer.WithRebalanceHooks(
			consumer.RebalanceHooks{
				BeforeRevoke: func() {
					if err := prod.Flush(context.Background()); err != nil {
						cfg.Logger.Warn("processor: flush before revoke failed", "error", err)
					}
				},
				BeforeLost: func() {
					if err := prod.Flush(context.Background()); err != nil {
						cfg.Logger.Warn("processor: flush before lost failed", "error", err)
					}
				},
			},
		),
	)
	if err != nil {
		return nil, fmt.Errorf("processor: build consumer: %w", err)
	}

	return &Processor{
		cfg: cfg, identity: identity, chain: chain,
		consumer: cons, producer: prod,
		status: StatusTerminated,
	}, nil
}

func defaultTopicOption(topic *string) producer.Option {
	if topic == nil {
		return func(*producer.Config) {}
	}
	return producer.WithDefaultTopic(*topic)
}

// Status returns the processor's current lifecycle state.
func (p *Processor) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Activate subscribes to the configured input topics and starts the poll
// loop in the background. onTerminated may be nil.
func (p *Processor) Activate(ctx context.Context, onTerminated OnTerminated) error {
	p.mu.Lock()
	if p.status != StatusTerminated {
		p.mu.Unlock()
		return ErrAlreadyActivated
	}
	p.mu.Unlock()

	if err := p.consumer.Start(ctx); err != nil {
		return fmt.Errorf("processor: subscribe: %w", err)
	}

	p.chain.Fire(interceptor.ProcessorActivatedEvent{Identity: p.identity})

	pctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.status = StatusActivated
	p.pctx = pctx
	p.cancel = cancel
	p.onTerminated = onTerminated
	p.gaps = nil
	p.mu.Unlock()

	go p.runLoop(pctx)
	return nil
}

func (p *Processor) runLoop(pctx context.Context) {
	var cause error
	for {
		select {
		case rec, ok := <-p.consumer.Records():
			if !ok {
				p.Terminate(nil)
				return
			}
			if err := p.ProcessRecord(pctx, rec); err != nil {
				cause = err
				p.Terminate(cause)
				return
			}
		case <-pctx.Done():
			p.Terminate(nil)
			return
		}
	}
}

// ProcessRecord routes rec through the configured Router and either skips
// it (router declines), errors out (deserialize or handler failure), or
// hands its generated outputs to ProcessOutput.
func (p *Processor) ProcessRecord(pctx context.Context, rec *record.Record) error {
	p.chain.Fire(interceptor.InputConsumedEvent{Identity: p.identity, Record: rec})

	if !p.cfg.Router.CanRoute(rec) {
		p.consumer.TrackPosition(rec)
		p.chain.Fire(interceptor.InputSkippedEvent{Identity: p.identity, Record: rec})
		p.cfg.Telemetry.InputsSkipped.Add(pctx, 1)
		return nil
	}

	p.chain.Fire(interceptor.InputReadyEvent{Identity: p.identity, Record: rec})
	atomic.AddInt64(&p.tasksActive, 1)
	p.cfg.Telemetry.TasksActive.Add(pctx, 1)
	start := time.Now()
	defer func() {
		atomic.AddInt64(&p.tasksActive, -1)
		p.cfg.Telemetry.TasksActive.Add(pctx, -1)
	}()

	raw, _ := rec.Value.([]byte)
	value, err := p.cfg.ValueDeserializer.Deserialize(rec.Topic, raw)
	if err != nil {
		p.recordProcessOutcome(pctx, start, telemetry.ProcessStatusError)
		wrapped := fmt.Errorf("processor: deserialize: %w", err)
		p.chain.Fire(interceptor.InputErrorEvent{Identity: p.identity, Record: rec, Err: wrapped})
		return wrapped
	}

	deserialized := rec.Clone()
	deserialized.Value = value

	rctx := router.NewContext(pctx, deserialized, p.cfg.Logger, p.cfg.DefaultOutputTopic)

	if err := p.cfg.Router.Process(rctx); err != nil {
		if errors.Is(err, context.Canceled) {
			p.recordProcessOutcome(pctx, start, telemetry.ProcessStatusSuccess)
			return nil
		}
		p.recordProcessOutcome(pctx, start, telemetry.ProcessStatusError)
		p.chain.Fire(interceptor.InputErrorEvent{Identity: p.identity, Record: rec, Err: err})
		return err
	}

	p.recordProcessOutcome(pctx, start, telemetry.ProcessStatusSuccess)
	return p.ProcessOutput(pctx, rec, rctx.GeneratedOutput())
}

func (p *Processor) recordProcessOutcome(ctx context.Context, start time.Time, status string) {
	p.cfg.Telemetry.ProcessDuration.Record(
		ctx, time.Since(start).Seconds(), metric.WithAttributes(telemetry.AttrProcessStatus.String(status)),
	)
}

// ProcessOutput produces every generated output and tracks rec's position
// once all of them succeed. A single failed delivery emits InputError and
// asynchronously terminates the processor; no position is tracked for rec.
func (p *Processor) ProcessOutput(pctx context.Context, rec *record.Record, outputs []record.PendingOutput) error {
	if len(outputs) == 0 {
		p.consumer.TrackPosition(rec)
		p.chain.Fire(interceptor.InputProcessedEvent{Identity: p.identity, Record: rec, Outputs: 0})
		p.cfg.Telemetry.InputsProcessed.Add(pctx, 1)
		return nil
	}

	total := int32(len(outputs))
	var succeeded, failed int32

	for _, out := range outputs {
		p.producer.Produce(
			p.pctx, out, func(res record.ProducerResult) {
				if res.Success {
					if atomic.AddInt32(&succeeded, 1) == total && atomic.LoadInt32(&failed) == 0 {
						p.consumer.TrackPosition(rec)
						p.chain.Fire(
							interceptor.InputProcessedEvent{
								Identity: p.identity, Record: rec, Outputs: int(total),
							},
						)
						p.cfg.Telemetry.InputsProcessed.Add(pctx, 1)
					}
					return
				}

				atomic.AddInt32(&failed, 1)
				p.chain.Fire(interceptor.InputErrorEvent{Identity: p.identity, Record: rec, Err: res.Err})
				go p.Terminate(res.Err)
			},
		)
	}
	return nil
}

// Terminate stops the processor. The first call runs the full teardown
// sequence (stop consumer, flush-close producer, dispose consumer) and
// fires ProcessorTerminated with the aggregated cause; a call while not
// Activated is a no-op diagnostic (spec P6, idempotent termination).
func (p *Processor) Terminate(cause error) error {
	cause = normalizeCancellation(cause)

	p.mu.Lock()
	if p.status != StatusActivated {
		gaps := p.gaps
		p.mu.Unlock()
		diag := fmt.Errorf("processor: terminate called while not activated: %w", errOrNil(cause))
		p.chain.Fire(interceptor.ProcessorTerminatedEvent{Identity: p.identity, Gaps: gaps, Err: diag})
		return ErrNotActivated
	}
	p.status = StatusTerminating
	p.mu.Unlock()

	p.chain.Fire(interceptor.ProcessorTerminatingEvent{Identity: p.identity})

	if p.cancel != nil {
		p.cancel()
	}

	gaps, stopErr := p.consumer.Stop(context.Background())
	prodErr := p.producer.Close(context.Background())
	disposeErr := p.consumer.Dispose(context.Background())

	aggregated := errors.Join(cause, stopErr, prodErr, disposeErr)

	p.mu.Lock()
	p.status = StatusTerminated
	p.gaps = gaps
	onTerminated := p.onTerminated
	p.mu.Unlock()

	p.chain.Fire(interceptor.ProcessorTerminatedEvent{Identity: p.identity, Gaps: gaps, Err: aggregated})

	if onTerminated != nil {
		p.invokeOnTerminated(onTerminated, gaps, aggregated)
	}
	return aggregated
}

func (p *Processor) invokeOnTerminated(fn OnTerminated, gaps []record.SubscriptionTopicGap, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.chain.Fire(
				interceptor.ProcessorTerminatedUserHandlingErrorEvent{
					Identity: p.identity, Err: fmt.Errorf("processor: on-terminated handler panicked: %v", r),
				},
			)
		}
	}()
	fn(p, gaps, err)
}

func normalizeCancellation(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func errOrNil(err error) error {
	if err == nil {
		return errors.New("no cause")
	}
	return err
}
