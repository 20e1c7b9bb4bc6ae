// Package mockkafka is an in-memory kafka.Client double used across
// krimson's unit tests: queued records per partition, rebalance callback
// invocation, produced-record capture, and configurable poll/produce/commit
// failures.
package mockkafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/hugolhafner/krimson/kafka"
	"github.com/hugolhafner/krimson/record"
)

var _ kafka.Client = (*Client)(nil)

// ProducedRecord captures one call to Produce.
type ProducedRecord struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   []record.Header
	EventTime int64
	RequestID string
}

type Client struct {
	mu sync.Mutex

	queues    map[record.TopicPartition][]*record.Record
	positions map[record.TopicPartition]int
	watermark map[record.TopicPartition][2]int64 // [low, high]

	produced         []ProducedRecord
	committedOffsets map[record.TopicPartition]int64
	trackedOffsets   map[record.TopicPartition]int64

	subscriptions []string
	rebalanceCb   kafka.RebalanceCallback
	assigned      []record.TopicPartition

	sendErr   func(record.ProducerRequest) error
	pollErr   error
	commitErr error

	closed bool
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		queues:           make(map[record.TopicPartition][]*record.Record),
		positions:        make(map[record.TopicPartition]int),
		watermark:        make(map[record.TopicPartition][2]int64),
		committedOffsets: make(map[record.TopicPartition]int64),
		trackedOffsets:   make(map[record.TopicPartition]int64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Subscribe(ctx context.Context, topics []string, cb kafka.RebalanceCallback) error {
	c.mu.Lock()
	c.subscriptions = topics
	c.rebalanceCb = cb

	var assigned []record.TopicPartition
	for tp := range c.queues {
		for _, topic := range topics {
			if tp.Topic == topic {
				assigned = append(assigned, tp)
			}
		}
	}
	c.assigned = assigned
	c.mu.Unlock()

	if cb != nil && len(assigned) > 0 {
		cb.OnPartitionsAssigned(ctx, assigned)
	}
	return nil
}

func (c *Client) Assign(_ context.Context, positions []record.Position) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range positions {
		tp := p.TopicPartition()
		c.assigned = append(c.assigned, tp)
		switch p.Offset {
		case record.Beginning:
			c.positions[tp] = 0
		case record.End:
			c.positions[tp] = len(c.queues[tp])
		default:
			c.positions[tp] = int(p.Offset)
		}
	}
	return nil
}

func (c *Client) Poll(_ context.Context) (*record.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pollErr != nil {
		return nil, c.pollErr
	}

	for _, tp := range c.assigned {
		idx := c.positions[tp]
		q := c.queues[tp]
		if idx < len(q) {
			c.positions[tp] = idx + 1
			return q[idx], nil
		}
	}
	return nil, nil
}

func (c *Client) Commit(_ context.Context, offsets map[record.TopicPartition]int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.commitErr != nil {
		return c.commitErr
	}
	for tp, off := range offsets {
		c.committedOffsets[tp] = off
	}
	return nil
}

func (c *Client) CommitAll(ctx context.Context) error {
	c.mu.Lock()
	tracked := make(map[record.TopicPartition]int64, len(c.trackedOffsets))
	for tp, off := range c.trackedOffsets {
		tracked[tp] = off
	}
	c.mu.Unlock()

	return c.Commit(ctx, tracked)
}

// TrackOffset simulates the consumer adapter marking a position
// ready-to-commit, so CommitAll has something to commit in tests that don't
// go through the real consumer package.
func (c *Client) TrackOffset(tp record.TopicPartition, offset int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trackedOffsets[tp] = offset
}

func (c *Client) WatermarkOffsets(_ context.Context, tp record.TopicPartition) (int64, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.watermark[tp]
	if !ok {
		return 0, 0, fmt.Errorf("mockkafka: no watermark configured for %s", tp)
	}
	return w[0], w[1], nil
}

func (c *Client) ListEndOffsets(_ context.Context, topic string) (map[record.TopicPartition]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[record.TopicPartition]int64)
	for tp, w := range c.watermark {
		if tp.Topic == topic {
			out[tp] = w[1]
		}
	}
	return out, nil
}

func (c *Client) Produce(_ context.Context, req record.ProducerRequest, cb kafka.DeliveryCallback) {
	c.mu.Lock()
	sendErr := c.sendErr
	c.mu.Unlock()

	if sendErr != nil {
		if err := sendErr(req); err != nil {
			cb(record.ProducerResult{Success: false, Err: err})
			return
		}
	}

	topic := ""
	if req.Topic != nil {
		topic = *req.Topic
	}

	c.mu.Lock()
	c.produced = append(
		c.produced, ProducedRecord{
			Topic: topic, Key: req.Key, Value: req.Value, Headers: req.Headers,
			EventTime: req.EventTime, RequestID: req.RequestID,
		},
	)
	recordID := fmt.Sprintf("%s-%d", topic, len(c.produced))
	c.mu.Unlock()

	cb(record.ProducerResult{Success: true, RecordID: recordID})
}

func (c *Client) Flush(_ context.Context) error {
	return nil
}

func (c *Client) Ping(_ context.Context) error {
	return nil
}

func (c *Client) Close(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// ProducedRecords returns every record captured via Produce.
func (c *Client) ProducedRecords() []ProducedRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ProducedRecord, len(c.produced))
	copy(out, c.produced)
	return out
}

// CommittedOffset returns the last committed offset for a partition.
func (c *Client) CommittedOffset(tp record.TopicPartition) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	off, ok := c.committedOffsets[tp]
	return off, ok
}

func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// TriggerRevoked simulates the broker revoking partitions mid-test.
func (c *Client) TriggerRevoked(ctx context.Context, partitions []record.TopicPartition) {
	c.mu.Lock()
	cb := c.rebalanceCb
	c.mu.Unlock()
	if cb != nil {
		cb.OnPartitionsRevoked(ctx, partitions)
	}
}

// TriggerLost simulates the broker losing partitions mid-test (no chance to
// flush cleanly).
func (c *Client) TriggerLost(ctx context.Context, partitions []record.TopicPartition) {
	c.mu.Lock()
	cb := c.rebalanceCb
	c.mu.Unlock()
	if cb != nil {
		cb.OnPartitionsLost(ctx, partitions)
	}
}
