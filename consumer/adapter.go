// Package consumer exposes a broker consumer as a lazy, cancellable
// asynchronous sequence of records: a single background poll goroutine hands
// records to a single-slot channel one at a time, so an undrained caller
// throttles polling instead of buffering unboundedly, per spec.md §4.3.
package consumer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hugolhafner/krimson/interceptor"
	"github.com/hugolhafner/krimson/kafka"
	"github.com/hugolhafner/krimson/record"
	"github.com/hugolhafner/krimson/telemetry"
	"go.opentelemetry.io/otel/metric"
)

var _ kafka.RebalanceCallback = (*Adapter)(nil)

// Adapter wraps a kafka.Client's consume surface.
type Adapter struct {
	cfg    Config
	client kafka.Client

	identity interceptor.Identity
	chain    *interceptor.Chain

	onPartitionEnd func(record.Position)
	commitInterval time.Duration

	out chan *record.Record

	posMu      sync.Mutex
	positions  map[record.TopicPartition]int64
	endOffsets map[record.TopicPartition]int64
	endFired   map[record.TopicPartition]bool
	trackers   map[record.TopicPartition]*offsetTracker

	stateMu sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New builds an Adapter. WithClient and WithTopics are required.
func New(opts ...Option) (*Adapter, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("consumer: no kafka.Client configured")
	}
	if len(cfg.Topics) == 0 {
		return nil, fmt.Errorf("consumer: no topics configured")
	}

	chain := cfg.Interceptors
	if chain == nil {
		chain = interceptor.NewChain(cfg.Logger)
	}

	commitInterval := cfg.CommitInterval
	if commitInterval <= 0 {
		commitInterval = 5 * time.Second
	}

	identity := interceptor.Identity{Name: cfg.ClientID, GroupID: cfg.GroupID}
	a := &Adapter{
		cfg:            cfg,
		client:         cfg.Client,
		identity:       identity,
		chain:          chain,
		commitInterval: commitInterval,
		out:            make(chan *record.Record),
		positions:      make(map[record.TopicPartition]int64),
		endOffsets:     make(map[record.TopicPartition]int64),
		endFired:       make(map[record.TopicPartition]bool),
		trackers:       make(map[record.TopicPartition]*offsetTracker),
		stopCh:         make(chan struct{}),
	}

	if hookable, ok := cfg.Client.(kafka.HookableClient); ok {
		hookable.SetLogHook(func(level, msg string) {
			chain.Fire(interceptor.ConsumerLogEvent{Identity: identity, Level: level, Message: msg})
		})
	}

	return a, nil
}

// WithPartitionEnd installs the on-partition-end hook fired when Poll
// returns no record and a partition's current position has reached its end
// offset, used by the reader package to detect a bounded read is complete.
func (a *Adapter) WithPartitionEnd(hook func(record.Position)) *Adapter {
	a.onPartitionEnd = hook
	return a
}

// Start subscribes and begins the background poll loop.
func (a *Adapter) Start(ctx context.Context) error {
	a.stateMu.Lock()
	if a.started {
		a.stateMu.Unlock()
		return ErrAlreadyStarted
	}
	a.started = true
	a.stateMu.Unlock()

	if err := a.client.Subscribe(ctx, a.cfg.Topics, a); err != nil {
		return fmt.Errorf("consumer: subscribe: %w", err)
	}

	a.wg.Add(1)
	go a.pollLoop(ctx)
	return nil
}

// StartAssigned directly assigns positions, bypassing group coordination,
// and begins the background poll loop. Used by reader for transient,
// groupless bounded reads.
func (a *Adapter) StartAssigned(ctx context.Context, positions []record.Position) error {
	a.stateMu.Lock()
	if a.started {
		a.stateMu.Unlock()
		return ErrAlreadyStarted
	}
	a.started = true
	a.stateMu.Unlock()

	if err := a.client.Assign(ctx, positions); err != nil {
		return fmt.Errorf("consumer: assign: %w", err)
	}

	partitions := make([]record.TopicPartition, len(positions))
	for i, p := range positions {
		partitions[i] = p.TopicPartition()
	}
	a.OnPartitionsAssigned(ctx, partitions)

	a.wg.Add(1)
	go a.pollLoop(ctx)
	return nil
}

// Records exposes the lazy sequence of consumed records. The channel closes
// once the poll loop exits (context cancellation or Stop).
func (a *Adapter) Records() <-chan *record.Record {
	return a.out
}

// TrackPosition marks rec's position as ready-to-commit for its partition.
func (a *Adapter) TrackPosition(rec *record.Record) {
	tp := rec.TopicPartition()

	a.posMu.Lock()
	defer a.posMu.Unlock()
	tr, ok := a.trackers[tp]
	if !ok {
		tr = newOffsetTracker(rec.Offset)
		a.trackers[tp] = tr
	}
	tr.mark(rec.Offset)
}

// Stop requests cessation of polling, waits for the poll loop to exit and a
// final commit to complete, and returns the gap between each partition's
// last consumed position and its end offset at the moment of stop.
func (a *Adapter) Stop(ctx context.Context) ([]record.SubscriptionTopicGap, error) {
	a.stateMu.Lock()
	if a.stopped {
		a.stateMu.Unlock()
		return nil, ErrAlreadyStopped
	}
	a.stopped = true
	a.stateMu.Unlock()

	close(a.stopCh)
	a.wg.Wait()

	if err := a.commitReady(ctx); err != nil {
		a.cfg.Logger.Warn("consumer: final commit failed", "error", err)
	}

	return a.gaps(ctx), nil
}

// Dispose releases the underlying kafka.Client.
func (a *Adapter) Dispose(ctx context.Context) error {
	return a.client.Close(ctx)
}

func (a *Adapter) gaps(ctx context.Context) []record.SubscriptionTopicGap {
	a.posMu.Lock()
	tps := make([]record.TopicPartition, 0, len(a.positions))
	for tp := range a.positions {
		tps = append(tps, tp)
	}
	a.posMu.Unlock()

	gaps := make([]record.SubscriptionTopicGap, 0, len(tps))
	for _, tp := range tps {
		a.posMu.Lock()
		current := a.positions[tp]
		a.posMu.Unlock()

		_, high, err := a.client.WatermarkOffsets(ctx, tp)
		if err != nil {
			a.cfg.Logger.Warn("consumer: watermark lookup failed", "topic", tp.Topic, "partition", tp.Partition, "error", err)
			continue
		}
		gaps = append(gaps, record.SubscriptionTopicGap{
			Topic: tp.Topic, Partition: tp.Partition, Current: current, End: high,
		})
	}
	return gaps
}

func (a *Adapter) commitReady(ctx context.Context) error {
	a.posMu.Lock()
	offsets := make(map[record.TopicPartition]int64, len(a.trackers))
	for tp, tr := range a.trackers {
		offsets[tp] = tr.readyOffset()
	}
	a.posMu.Unlock()

	if len(offsets) == 0 {
		return nil
	}
	if err := a.client.Commit(ctx, offsets); err != nil {
		return fmt.Errorf("consumer: commit: %w", err)
	}
	a.chain.Fire(interceptor.PositionsCommittedEvent{Identity: a.identity, Offsets: offsets})
	return nil
}

func (a *Adapter) pollLoop(ctx context.Context) {
	defer a.wg.Done()
	defer close(a.out)

	ticker := time.NewTicker(a.commitInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.stopCh:
			return
		case <-ticker.C:
			if err := a.commitReady(ctx); err != nil {
				a.cfg.Logger.Warn("consumer: auto-commit failed", "error", err)
			}
		default:
		}

		pollStart := time.Now()
		rec, err := a.client.Poll(ctx)
		elapsed := time.Since(pollStart).Seconds()

		if err != nil {
			a.cfg.Telemetry.PollDuration.Record(ctx, elapsed, metric.WithAttributes(telemetry.AttrPollStatus.String(telemetry.PollStatusError)))
			a.chain.Fire(interceptor.ConsumerErrorEvent{Identity: a.identity, Err: err, Fatal: kafka.IsFatal(err)})
			select {
			case <-ctx.Done():
				return
			case <-a.stopCh:
				return
			case <-time.After(250 * time.Millisecond):
			}
			continue
		}

		if rec == nil {
			a.cfg.Telemetry.PollDuration.Record(ctx, elapsed, metric.WithAttributes(telemetry.AttrPollStatus.String(telemetry.PollStatusEmpty)))
			a.checkPartitionEnds()
			continue
		}

		a.cfg.Telemetry.PollDuration.Record(ctx, elapsed, metric.WithAttributes(telemetry.AttrPollStatus.String(telemetry.PollStatusRecord)))
		a.cfg.Telemetry.MessagesConsumed.Add(ctx, 1)

		a.posMu.Lock()
		a.positions[rec.TopicPartition()] = rec.Offset + 1
		a.posMu.Unlock()

		select {
		case a.out <- rec:
		case <-ctx.Done():
			return
		case <-a.stopCh:
			return
		}
	}
}

func (a *Adapter) checkPartitionEnds() {
	if a.onPartitionEnd == nil {
		return
	}

	a.posMu.Lock()
	type check struct {
		tp      record.TopicPartition
		current int64
		end     int64
	}
	var pending []check
	for tp, end := range a.endOffsets {
		if a.endFired[tp] {
			continue
		}
		if a.positions[tp] >= end {
			pending = append(pending, check{tp: tp, current: a.positions[tp], end: end})
			a.endFired[tp] = true
		}
	}
	a.posMu.Unlock()

	for _, c := range pending {
		pos := record.Position{Topic: c.tp.Topic, Partition: c.tp.Partition, Offset: c.current}
		a.chain.Fire(interceptor.PartitionEndReachedEvent{Identity: a.identity, Position: pos})
		a.onPartitionEnd(pos)
	}
}

// OnPartitionsAssigned implements kafka.RebalanceCallback.
func (a *Adapter) OnPartitionsAssigned(ctx context.Context, partitions []record.TopicPartition) {
	a.chain.Fire(interceptor.PartitionsAssignedEvent{Identity: a.identity, Partitions: partitions})

	if a.onPartitionEnd == nil {
		return
	}
	for _, tp := range partitions {
		_, high, err := a.client.WatermarkOffsets(ctx, tp)
		if err != nil {
			a.cfg.Logger.Warn("consumer: watermark lookup on assign failed", "topic", tp.Topic, "partition", tp.Partition, "error", err)
			continue
		}
		a.posMu.Lock()
		a.endOffsets[tp] = high
		delete(a.endFired, tp)
		a.posMu.Unlock()
	}
}

// OnPartitionsRevoked implements kafka.RebalanceCallback. The caller's
// BeforeRevoke hook (typically a processor's flush-then-commit protocol,
// spec §4.5) runs before this adapter's own final commit of tracked
// positions.
func (a *Adapter) OnPartitionsRevoked(ctx context.Context, partitions []record.TopicPartition) {
	if a.cfg.Rebalance.BeforeRevoke != nil {
		a.cfg.Rebalance.BeforeRevoke()
	}
	if err := a.commitReady(ctx); err != nil {
		a.cfg.Logger.Warn("consumer: commit on revoke failed", "error", err)
	}
	a.forgetPartitions(partitions)
	a.chain.Fire(interceptor.PartitionsRevokedEvent{Identity: a.identity, Partitions: partitions})
}

// OnPartitionsLost implements kafka.RebalanceCallback. Per spec.md's
// flush-then-commit rebalance protocol, a lost partition gets the same
// best-effort flush-and-commit as a cleanly revoked one — the broker may
// already have reassigned it to another member, so the commit can race a
// newer offset and lose, but attempting it is still strictly better than
// never trying.
func (a *Adapter) OnPartitionsLost(ctx context.Context, partitions []record.TopicPartition) {
	if a.cfg.Rebalance.BeforeLost != nil {
		a.cfg.Rebalance.BeforeLost()
	}
	if err := a.commitReady(ctx); err != nil {
		a.cfg.Logger.Warn("consumer: commit on lost failed", "error", err)
	}
	a.forgetPartitions(partitions)
	a.chain.Fire(interceptor.PartitionsLostEvent{Identity: a.identity, Partitions: partitions})
}

func (a *Adapter) forgetPartitions(partitions []record.TopicPartition) {
	a.posMu.Lock()
	defer a.posMu.Unlock()
	for _, tp := range partitions {
		delete(a.trackers, tp)
		delete(a.positions, tp)
		delete(a.endOffsets, tp)
		delete(a.endFired, tp)
	}
}
