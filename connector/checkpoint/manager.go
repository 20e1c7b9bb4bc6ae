// Package checkpoint tracks, per destination topic, the greatest event time
// a connector has successfully produced. It is the connector runtime's
// dedup boundary: a source record older than or equal to its destination
// topic's checkpoint has already been produced and is skipped.
package checkpoint

import (
	"context"
	"fmt"
	"sync"

	"github.com/hugolhafner/krimson/interceptor"
	"github.com/hugolhafner/krimson/logger"
	"github.com/hugolhafner/krimson/reader"
	"github.com/hugolhafner/krimson/record"
)

// Manager is a single-writer, in-memory checkpoint store, lazily rehydrated
// per topic from the topic's own tail via reader.LastRecords.
type Manager struct {
	reader   *reader.Reader
	chain    *interceptor.Chain
	identity interceptor.Identity
	logger   logger.Logger

	mu          sync.Mutex
	checkpoints map[string]record.Checkpoint
}

// NewManager builds a Manager. r is used to rehydrate a topic's checkpoint
// the first time it's asked about.
func NewManager(r *reader.Reader, chain *interceptor.Chain, identity interceptor.Identity, l logger.Logger) *Manager {
	return &Manager{
		reader:      r,
		chain:       chain,
		identity:    identity,
		logger:      l,
		checkpoints: make(map[string]record.Checkpoint),
	}
}

// GetCheckpoint returns topic's checkpoint, rehydrating it from the topic's
// tail on first access.
func (m *Manager) GetCheckpoint(ctx context.Context, topic string) (record.Checkpoint, error) {
	m.mu.Lock()
	if ckpt, ok := m.checkpoints[topic]; ok {
		m.mu.Unlock()
		return ckpt, nil
	}
	m.mu.Unlock()

	ckpt, err := m.rehydrate(ctx, topic)
	if err != nil {
		return record.Checkpoint{}, fmt.Errorf("checkpoint: rehydrate %q: %w", topic, err)
	}

	m.mu.Lock()
	if existing, ok := m.checkpoints[topic]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.checkpoints[topic] = ckpt
	m.mu.Unlock()
	return ckpt, nil
}

func (m *Manager) rehydrate(ctx context.Context, topic string) (record.Checkpoint, error) {
	records, err := m.reader.LastRecords(ctx, topic)
	if err != nil {
		return record.Checkpoint{}, err
	}

	var latest record.Checkpoint
	for _, rec := range records {
		if rec.EventTime > latest.EventTimeMillis {
			latest = record.Checkpoint{RecordID: rec.RecordID, EventTimeMillis: rec.EventTime}
		}
	}
	return latest, nil
}

// TrackCheckpoint advances topic's checkpoint to ckpt. Non-monotonic
// updates (ckpt no greater than the current value) are rejected and logged
// rather than applied, so a late or out-of-order tick can never regress the
// dedup boundary.
func (m *Manager) TrackCheckpoint(topic string, ckpt record.Checkpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.checkpoints[topic]
	if ok && ckpt.EventTimeMillis <= current.EventTimeMillis {
		m.chain.Fire(interceptor.ConsumerErrorEvent{
			Identity: m.identity,
			Err: fmt.Errorf(
				"connector: checkpoint regression on topic %q: attempted %d <= current %d",
				topic, ckpt.EventTimeMillis, current.EventTimeMillis,
			),
			Fatal: false,
		})
		return
	}
	m.checkpoints[topic] = ckpt
}
