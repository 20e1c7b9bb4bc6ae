package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hugolhafner/krimson/logger"
	"github.com/hugolhafner/krimson/record"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ Client = (*KgoClient)(nil)
var _ HookableClient = (*KgoClient)(nil)

// KgoClientConfig configures a KgoClient. GroupID may be empty for
// transient, read-only consumers (the reader package's use case).
type KgoClientConfig struct {
	BootstrapServers   []string
	GroupID            string
	SessionTimeout     time.Duration
	HeartbeatInterval  time.Duration
	AutoCommitInterval time.Duration
	MaxPollRecords     int
	PollTimeout        time.Duration

	Logger logger.Logger
	OnLog  LogHook
}

func defaultConfig() KgoClientConfig {
	return KgoClientConfig{
		BootstrapServers:   []string{"localhost:9092"},
		SessionTimeout:     45 * time.Second,
		HeartbeatInterval:  3 * time.Second,
		PollTimeout:        3 * time.Second,
		AutoCommitInterval: 5 * time.Second,
		MaxPollRecords:     500,
		Logger:             logger.NewNoopLogger(),
	}
}

// KgoOption configures a KgoClient at construction.
type KgoOption func(*KgoClientConfig)

func WithBootstrapServers(servers []string) KgoOption {
	return func(cfg *KgoClientConfig) { cfg.BootstrapServers = servers }
}

func WithGroupID(id string) KgoOption {
	return func(cfg *KgoClientConfig) { cfg.GroupID = id }
}

func WithLogger(l logger.Logger) KgoOption {
	return func(cfg *KgoClientConfig) { cfg.Logger = l.With("client", "kgo") }
}

func WithLogHook(h LogHook) KgoOption {
	return func(cfg *KgoClientConfig) { cfg.OnLog = h }
}

// KgoClient is the production Client implementation, backed by
// github.com/twmb/franz-go.
type KgoClient struct {
	client *kgo.Client
	admin  *kadm.Client
	config KgoClientConfig

	mu          sync.RWMutex
	subscribed  bool
	rebalanceCb RebalanceCallback

	pending []kgoPendingRecord

	logger logger.Logger
}

// kgoPendingRecord pairs a converted record with the raw kgo.Record it came
// from, so Poll can mark it for AutoCommitMarks at the point it's handed to
// the caller.
type kgoPendingRecord struct {
	rec *record.Record
	raw *kgo.Record
}

// NewKgoClient constructs a KgoClient. When cfg.GroupID is empty the client
// consumes without joining a group, suitable for reader's transient reads.
func NewKgoClient(opts ...KgoOption) (*KgoClient, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	kc := &KgoClient{config: cfg, logger: cfg.Logger}

	kgoOpts := []kgo.Opt{
		kgo.SeedBrokers(cfg.BootstrapServers...),
		kgo.WithLogger(newKgoLogger(kc)),
		kgo.SessionTimeout(cfg.SessionTimeout),
		kgo.HeartbeatInterval(cfg.HeartbeatInterval),
	}

	if cfg.GroupID != "" {
		kgoOpts = append(
			kgoOpts,
			kgo.ConsumerGroup(cfg.GroupID),
			kgo.OnPartitionsAssigned(kc.onAssigned),
			kgo.OnPartitionsRevoked(kc.onRevoked),
			kgo.OnPartitionsLost(kc.onLost),
			kgo.AutoCommitMarks(),
			kgo.AutoCommitInterval(cfg.AutoCommitInterval),
			kgo.BlockRebalanceOnPoll(),
		)
	}

	client, err := kgo.NewClient(kgoOpts...)
	if err != nil {
		return nil, fmt.Errorf("create kgo client: %w", err)
	}

	kc.client = client
	kc.admin = kadm.NewClient(client)

	return kc, nil
}

func (k *KgoClient) onAssigned(ctx context.Context, _ *kgo.Client, assigned map[string][]int32) {
	k.mu.RLock()
	cb := k.rebalanceCb
	k.mu.RUnlock()
	if cb == nil {
		return
	}
	cb.OnPartitionsAssigned(ctx, mapToTopicPartitions(assigned))
}

func (k *KgoClient) onRevoked(ctx context.Context, c *kgo.Client, revoked map[string][]int32) {
	k.mu.RLock()
	cb := k.rebalanceCb
	k.mu.RUnlock()
	if cb != nil {
		cb.OnPartitionsRevoked(ctx, mapToTopicPartitions(revoked))
	}
	// AllowRebalance must run after the caller has flushed & committed, which
	// happens synchronously inside OnPartitionsRevoked above.
	c.AllowRebalance()
}

func (k *KgoClient) onLost(ctx context.Context, c *kgo.Client, lost map[string][]int32) {
	k.mu.RLock()
	cb := k.rebalanceCb
	k.mu.RUnlock()
	if cb != nil {
		cb.OnPartitionsLost(ctx, mapToTopicPartitions(lost))
	}
	c.AllowRebalance()
}

func (k *KgoClient) Subscribe(_ context.Context, topics []string, cb RebalanceCallback) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.subscribed {
		return errors.New("kafka: already subscribed")
	}

	k.rebalanceCb = cb
	k.client.AddConsumeTopics(topics...)
	k.subscribed = true
	return nil
}

func (k *KgoClient) Assign(_ context.Context, positions []record.Position) error {
	partitions := make(map[string]map[int32]kgo.Offset)
	for _, p := range positions {
		if partitions[p.Topic] == nil {
			partitions[p.Topic] = make(map[int32]kgo.Offset)
		}
		partitions[p.Topic][p.Partition] = kgoOffsetFor(p.Offset)
	}
	k.client.AddConsumePartitions(partitions)
	return nil
}

func kgoOffsetFor(offset int64) kgo.Offset {
	switch offset {
	case record.Beginning:
		return kgo.NewOffset().AtStart()
	case record.End:
		return kgo.NewOffset().AtEnd()
	default:
		return kgo.NewOffset().At(offset)
	}
}

func (k *KgoClient) Poll(ctx context.Context) (*record.Record, error) {
	k.mu.Lock()
	if len(k.pending) > 0 {
		p := k.pending[0]
		k.pending = k.pending[1:]
		k.mu.Unlock()
		k.markConsumed(p.raw)
		return p.rec, nil
	}
	k.mu.Unlock()

	pollCtx, cancel := context.WithTimeout(ctx, k.config.PollTimeout)
	defer cancel()

	fetches := k.client.PollRecords(pollCtx, k.config.MaxPollRecords)
	if k.subscribedToGroup() {
		defer k.client.AllowRebalance()
	}

	if errs := fetches.Errors(); len(errs) > 0 {
		for _, e := range errs {
			if errors.Is(e.Err, context.DeadlineExceeded) || errors.Is(e.Err, context.Canceled) {
				continue
			}
			return nil, fmt.Errorf("poll: %w", e.Err)
		}
	}

	kgoRecords := fetches.Records()
	if len(kgoRecords) == 0 {
		return nil, nil
	}

	k.mu.Lock()
	for _, kr := range kgoRecords {
		k.pending = append(k.pending, kgoPendingRecord{rec: convertRecord(kr), raw: kr})
	}

	p := k.pending[0]
	k.pending = k.pending[1:]
	k.mu.Unlock()

	k.markConsumed(p.raw)
	return p.rec, nil
}

// markConsumed records raw as eligible for the group's next AutoCommitMarks
// commit. Only meaningful for group-subscribed clients; kgo ignores marks
// when the client wasn't built with kgo.AutoCommitMarks().
func (k *KgoClient) markConsumed(raw *kgo.Record) {
	if !k.subscribedToGroup() || raw == nil {
		return
	}
	k.client.MarkCommitRecords(raw)
}

func (k *KgoClient) subscribedToGroup() bool {
	return k.config.GroupID != ""
}

func (k *KgoClient) Commit(ctx context.Context, offsets map[record.TopicPartition]int64) error {
	if len(offsets) == 0 {
		return nil
	}
	os := make(kadm.Offsets)
	for tp, offset := range offsets {
		os.Add(kadm.Offset{Topic: tp.Topic, Partition: tp.Partition, At: offset})
	}
	_, err := k.admin.CommitOffsets(ctx, k.config.GroupID, os)
	return err
}

func (k *KgoClient) CommitAll(ctx context.Context) error {
	return k.client.CommitMarkedOffsets(ctx)
}

func (k *KgoClient) WatermarkOffsets(ctx context.Context, tp record.TopicPartition) (low, high int64, err error) {
	startResp, err := k.admin.ListStartOffsets(ctx, tp.Topic)
	if err != nil {
		return 0, 0, fmt.Errorf("list start offsets: %w", err)
	}
	endResp, err := k.admin.ListEndOffsets(ctx, tp.Topic)
	if err != nil {
		return 0, 0, fmt.Errorf("list end offsets: %w", err)
	}

	lowOffset, ok := startResp.Lookup(tp.Topic, tp.Partition)
	if !ok {
		return 0, 0, fmt.Errorf("no start offset for %s", tp)
	}
	highOffset, ok := endResp.Lookup(tp.Topic, tp.Partition)
	if !ok {
		return 0, 0, fmt.Errorf("no end offset for %s", tp)
	}

	return lowOffset.Offset, highOffset.Offset, nil
}

func (k *KgoClient) ListEndOffsets(ctx context.Context, topic string) (map[record.TopicPartition]int64, error) {
	resp, err := k.admin.ListEndOffsets(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("list end offsets: %w", err)
	}

	out := make(map[record.TopicPartition]int64)
	resp.Each(
		func(lo kadm.ListedOffset) {
			if lo.Err != nil {
				return
			}
			out[record.TopicPartition{Topic: lo.Topic, Partition: lo.Partition}] = lo.Offset
		},
	)
	return out, nil
}

func (k *KgoClient) Produce(ctx context.Context, req record.ProducerRequest, cb DeliveryCallback) {
	if req.Topic == nil {
		cb(record.ProducerResult{Success: false, Err: errors.New("kafka: produce request has no topic")})
		return
	}

	kr := &kgo.Record{
		Topic:   *req.Topic,
		Key:     req.Key,
		Value:   req.Value,
		Headers: convertToKgoHeaders(req.Headers),
	}
	if req.EventTime > 0 {
		kr.Timestamp = time.UnixMilli(req.EventTime)
	}

	k.client.Produce(
		ctx, kr, func(r *kgo.Record, err error) {
			if err != nil {
				cb(record.ProducerResult{Success: false, Err: err})
				return
			}
			cb(record.ProducerResult{Success: true, RecordID: recordID(r)})
		},
	)
}

func (k *KgoClient) Flush(ctx context.Context) error {
	return k.client.Flush(ctx)
}

func (k *KgoClient) Ping(ctx context.Context) error {
	return k.client.Ping(ctx)
}

// SetLogHook implements HookableClient, letting a consumer.Adapter built
// around this client register its own log line forwarder after
// construction.
func (k *KgoClient) SetLogHook(h LogHook) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.config.OnLog = h
}

func (k *KgoClient) logHook() LogHook {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.config.OnLog
}

func (k *KgoClient) Close(_ context.Context) error {
	k.client.CloseAllowingRebalance()
	return nil
}

func recordID(r *kgo.Record) string {
	return fmt.Sprintf("%s-%d-%d", r.Topic, r.Partition, r.Offset)
}

func convertRecord(r *kgo.Record) *record.Record {
	return &record.Record{
		Position: record.Position{
			Topic:         r.Topic,
			Partition:     r.Partition,
			Offset:        r.Offset,
			LogAppendTime: r.Timestamp,
		},
		Key:       r.Key,
		Value:     r.Value,
		Headers:   convertFromKgoHeaders(r.Headers),
		EventTime: r.Timestamp.UnixMilli(),
		RecordID:  recordID(r),
	}
}

func convertFromKgoHeaders(headers []kgo.RecordHeader) []record.Header {
	if len(headers) == 0 {
		return nil
	}
	out := make([]record.Header, len(headers))
	for i, h := range headers {
		out[i] = record.Header{Key: h.Key, Value: h.Value}
	}
	return out
}

func convertToKgoHeaders(headers []record.Header) []kgo.RecordHeader {
	if len(headers) == 0 {
		return nil
	}
	out := make([]kgo.RecordHeader, len(headers))
	for i, h := range headers {
		out[i] = kgo.RecordHeader{Key: h.Key, Value: h.Value}
	}
	return out
}

func mapToTopicPartitions(m map[string][]int32) []record.TopicPartition {
	var tps []record.TopicPartition
	for topic, partitions := range m {
		for _, p := range partitions {
			tps = append(tps, record.TopicPartition{Topic: topic, Partition: p})
		}
	}
	return tps
}
