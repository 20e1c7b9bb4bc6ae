// Package reader provides bounded and tailed reads over a topic without
// joining a consumer group: every call builds a fresh, transient
// kafka.Client and consumer.Adapter pair and tears them down once the read
// completes, per spec.md §4.4's "no subscription state reuse" contract.
package reader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hugolhafner/krimson/consumer"
	"github.com/hugolhafner/krimson/kafka"
	"github.com/hugolhafner/krimson/record"
)

// Reader reads records from a topic outside of any consumer group.
type Reader struct {
	cfg Config
}

// New builds a Reader. WithClientFactory is required.
func New(opts ...Option) (*Reader, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ClientFactory == nil {
		return nil, fmt.Errorf("reader: no client factory configured")
	}
	return &Reader{cfg: cfg}, nil
}

// Records reads start.Partition of start.Topic beginning at start's offset,
// or, when start.Partition is record.AnyPartition, every partition of the
// topic from record.Beginning. The returned channel closes once every
// assigned partition has
// reached its end offset, or ctx is done.
func (r *Reader) Records(ctx context.Context, start record.Position) (<-chan *record.Record, error) {
	client, err := r.cfg.ClientFactory()
	if err != nil {
		return nil, fmt.Errorf("reader: client factory: %w", err)
	}

	positions, err := r.resolvePositions(ctx, client, start)
	if err != nil {
		_ = client.Close(ctx)
		return nil, err
	}

	adapter, endedCh, err := r.startBoundedRead(ctx, client, start.Topic, positions)
	if err != nil {
		_ = client.Close(ctx)
		return nil, err
	}

	out := make(chan *record.Record)
	go func() {
		defer close(out)
		defer func() {
			_, _ = adapter.Stop(ctx)
			_ = adapter.Dispose(ctx)
		}()

		for {
			select {
			case rec, ok := <-adapter.Records():
				if !ok {
					return
				}
				select {
				case out <- rec:
				case <-ctx.Done():
					return
				}
			case <-endedCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// RecordsFromTopic reads every partition of topic from the beginning.
func (r *Reader) RecordsFromTopic(ctx context.Context, topic string) (<-chan *record.Record, error) {
	return r.Records(ctx, record.Position{Topic: topic, Partition: record.AnyPartition, Offset: record.Beginning})
}

// GetLatestPositions returns, for every partition of topic, the position one
// past the last currently-written record — the position at which a
// subsequent Records call would only see new data.
func (r *Reader) GetLatestPositions(ctx context.Context, topic string) ([]record.Position, error) {
	client, err := r.cfg.ClientFactory()
	if err != nil {
		return nil, fmt.Errorf("reader: client factory: %w", err)
	}
	defer func() { _ = client.Close(ctx) }()

	ends, err := client.ListEndOffsets(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("reader: list end offsets: %w", err)
	}

	positions := make([]record.Position, 0, len(ends))
	for tp, offset := range ends {
		positions = append(positions, record.Position{Topic: tp.Topic, Partition: tp.Partition, Offset: offset})
	}
	return positions, nil
}

// LastRecords reads the single most recent record of every non-empty
// partition of topic.
func (r *Reader) LastRecords(ctx context.Context, topic string) ([]*record.Record, error) {
	client, err := r.cfg.ClientFactory()
	if err != nil {
		return nil, fmt.Errorf("reader: client factory: %w", err)
	}

	ends, err := client.ListEndOffsets(ctx, topic)
	if err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("reader: list end offsets: %w", err)
	}

	var positions []record.Position
	for tp, high := range ends {
		if high == 0 {
			continue
		}
		positions = append(positions, record.Position{Topic: tp.Topic, Partition: tp.Partition, Offset: high - 1})
	}
	if len(positions) == 0 {
		_ = client.Close(ctx)
		return nil, nil
	}

	adapter, endedCh, err := r.startBoundedRead(ctx, client, topic, positions)
	if err != nil {
		_ = client.Close(ctx)
		return nil, err
	}
	defer func() {
		_, _ = adapter.Stop(ctx)
		_ = adapter.Dispose(ctx)
	}()

	records := make([]*record.Record, 0, len(positions))
	for {
		select {
		case rec, ok := <-adapter.Records():
			if !ok {
				return records, nil
			}
			records = append(records, rec)
			if len(records) == len(positions) {
				return records, nil
			}
		case <-endedCh:
			return records, nil
		case <-ctx.Done():
			return records, ctx.Err()
		}
	}
}

func (r *Reader) resolvePositions(ctx context.Context, client kafka.Client, start record.Position) ([]record.Position, error) {
	if start.Partition != record.AnyPartition {
		return []record.Position{start}, nil
	}

	ends, err := client.ListEndOffsets(ctx, start.Topic)
	if err != nil {
		return nil, fmt.Errorf("reader: list end offsets: %w", err)
	}

	positions := make([]record.Position, 0, len(ends))
	for tp := range ends {
		positions = append(positions, record.Position{Topic: tp.Topic, Partition: tp.Partition, Offset: record.Beginning})
	}
	if len(positions) == 0 {
		return nil, fmt.Errorf("reader: topic %q has no partitions", start.Topic)
	}
	return positions, nil
}

// startBoundedRead builds a transient consumer.Adapter over positions and
// returns a channel that closes once every partition has reached its end
// offset.
func (r *Reader) startBoundedRead(ctx context.Context, client kafka.Client, topic string, positions []record.Position) (*consumer.Adapter, <-chan struct{}, error) {
	adapter, err := consumer.New(
		consumer.WithClient(client),
		consumer.WithTopics(topic),
		consumer.WithLogger(r.cfg.Logger),
		consumer.WithTelemetry(r.cfg.Telemetry),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("reader: build consumer: %w", err)
	}

	remaining := int32(len(positions))
	endedCh := make(chan struct{})
	var closeOnce sync.Once
	adapter.WithPartitionEnd(
		func(record.Position) {
			if atomic.AddInt32(&remaining, -1) <= 0 {
				closeOnce.Do(func() { close(endedCh) })
			}
		},
	)

	if err := adapter.StartAssigned(ctx, positions); err != nil {
		return nil, nil, fmt.Errorf("reader: start: %w", err)
	}

	return adapter, endedCh, nil
}
