// Package kafka is the low-level broker client surface krimson consumes. It
// presumes a classical Kafka consumer/producer client (subscribe, poll,
// assign, commit, produce, delivery-report callback,
// partition-assigned/revoked/lost callbacks, metadata/watermark queries) and
// says nothing about wire codecs: values cross this boundary as opaque
// bytes, exactly as spec'd.
package kafka

import (
	"context"

	"github.com/hugolhafner/krimson/record"
)

// DeliveryCallback is invoked exactly once per produced request.
type DeliveryCallback func(record.ProducerResult)

// RebalanceCallback is driven by the client whenever the consumer group
// protocol assigns, revokes, or loses partitions.
type RebalanceCallback interface {
	OnPartitionsAssigned(ctx context.Context, partitions []record.TopicPartition)
	OnPartitionsRevoked(ctx context.Context, partitions []record.TopicPartition)
	OnPartitionsLost(ctx context.Context, partitions []record.TopicPartition)
}

// LogHook lets the concrete client surface its own internal diagnostic log
// lines (connection/rebalance/protocol chatter that never crosses the
// normal Poll/error-return path) to whatever's wrapping it.
type LogHook func(level string, msg string)

// Client is the broker client surface. A concrete implementation
// (KgoClient) wraps a real client library; kafka/mock provides an in-memory
// double for tests.
type Client interface {
	Producer
	Consumer

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// HookableClient is an optional Client capability. KgoClient is built
// independently of the consumer.Adapter that will wrap it (via a factory
// function), so it can't be given a LogHook at construction time by its
// eventual caller; HookableClient lets that caller register one afterward.
// consumer.Adapter forwards every hooked line into its own interceptor
// chain as a ConsumerLogEvent. kafka/mock's Client has no internal
// diagnostics of its own to surface and does not implement this.
type HookableClient interface {
	SetLogHook(LogHook)
}

// Producer is the produce-side of Client.
type Producer interface {
	// Produce enqueues req for asynchronous delivery. cb is invoked exactly
	// once, possibly from a different goroutine. Ordering is preserved
	// within a single {topic, partition-key}.
	Produce(ctx context.Context, req record.ProducerRequest, cb DeliveryCallback)
	// Flush blocks until every enqueued produce has been acknowledged or
	// failed.
	Flush(ctx context.Context) error
}

// Consumer is the consume-side of Client.
type Consumer interface {
	Subscribe(ctx context.Context, topics []string, cb RebalanceCallback) error
	// Assign directly assigns specific offsets, bypassing group
	// coordination. Used by reader for one-shot bounded reads.
	Assign(ctx context.Context, positions []record.Position) error
	// Poll returns the next available record, or (nil, nil) if none arrived
	// within the client's internal poll timeout.
	Poll(ctx context.Context) (*record.Record, error)
	// Commit commits exactly the given offsets (offset is "next to consume",
	// i.e. highest-processed + 1).
	Commit(ctx context.Context, offsets map[record.TopicPartition]int64) error
	// CommitAll commits every currently tracked ready-to-commit offset.
	CommitAll(ctx context.Context) error
	// WatermarkOffsets returns the low (earliest) and high (end) offsets for
	// a partition.
	WatermarkOffsets(ctx context.Context, tp record.TopicPartition) (low, high int64, err error)
	// ListEndOffsets discovers every partition of topic and its current end
	// (high watermark) offset in one round trip. Used by reader for
	// "any partition" bounded reads and latest-position discovery.
	ListEndOffsets(ctx context.Context, topic string) (map[record.TopicPartition]int64, error)
}
