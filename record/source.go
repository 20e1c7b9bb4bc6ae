package record

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Operation classifies how a SourceRecord's origin item relates to prior
// state at the external data source.
type Operation int

const (
	OperationSnapshot Operation = iota
	OperationInsert
	OperationUpdate
	OperationDelete
)

func (o Operation) String() string {
	switch o {
	case OperationSnapshot:
		return "Snapshot"
	case OperationInsert:
		return "Insert"
	case OperationUpdate:
		return "Update"
	case OperationDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// StateKind is the terminal/non-terminal classification of a SourceRecord's
// processing lifecycle.
type StateKind int

const (
	Pending StateKind = iota
	Skipped
	Acked
	Naked
)

func (s StateKind) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Skipped:
		return "Skipped"
	case Acked:
		return "Acked"
	case Naked:
		return "Naked"
	default:
		return "Unknown"
	}
}

// ProcessingState is the terminal outcome of a SourceRecord, once resolved.
type ProcessingState struct {
	Kind     StateKind
	RecordID string // populated iff Kind == Acked
	Err      error  // populated iff Kind == Naked
}

// SourceRecord is a connector-domain record: a superset of ProducerRequest
// carrying dedup metadata and a one-shot completion future. Once its state
// becomes non-Pending it is terminal; EnsureProcessed resolves the moment
// that happens.
type SourceRecord struct {
	ID               string
	Source           string
	DestinationTopic string
	Key              []byte
	Value            []byte
	Headers          []Header
	EventTime        int64
	Type             string
	Operation        Operation
	RequestID        string

	mu    sync.Mutex
	state ProcessingState
	done  chan struct{}
}

// NewSourceRecord builds a SourceRecord in the Pending state, stamped with a
// fresh ID and RequestID so a connector need not mint one for records that
// have no natural upstream identifier.
func NewSourceRecord() *SourceRecord {
	id := uuid.NewString()
	return &SourceRecord{
		ID:        id,
		RequestID: id,
		state:     ProcessingState{Kind: Pending},
		done:      make(chan struct{}),
	}
}

// State returns the current processing state.
func (r *SourceRecord) State() ProcessingState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Skip transitions a Pending record straight to Skipped. Idempotent: later
// calls of Skip/Ack/Nak on an already-terminal record are ignored.
func (r *SourceRecord) Skip() {
	r.resolve(ProcessingState{Kind: Skipped})
}

// Ack transitions a Pending record to Acked. Idempotent.
func (r *SourceRecord) Ack(recordID string) {
	r.resolve(ProcessingState{Kind: Acked, RecordID: recordID})
}

// Nak transitions a Pending record to Naked. Idempotent.
func (r *SourceRecord) Nak(err error) {
	r.resolve(ProcessingState{Kind: Naked, Err: err})
}

func (r *SourceRecord) resolve(state ProcessingState) {
	r.mu.Lock()
	if r.state.Kind != Pending {
		r.mu.Unlock()
		return
	}
	r.state = state
	r.mu.Unlock()
	close(r.done)
}

// EnsureProcessed blocks until the record reaches a terminal state, or the
// context is done first.
func (r *SourceRecord) EnsureProcessed(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Copy returns a deep copy of the record's data, sharing no mutable state
// with the receiver except the completion future itself.
func (r *SourceRecord) Copy() *SourceRecord {
	key := make([]byte, len(r.Key))
	copy(key, r.Key)
	value := make([]byte, len(r.Value))
	copy(value, r.Value)

	return &SourceRecord{
		ID:               r.ID,
		Source:           r.Source,
		DestinationTopic: r.DestinationTopic,
		Key:              key,
		Value:            value,
		Headers:          copyHeaders(r.Headers),
		EventTime:        r.EventTime,
		Type:             r.Type,
		Operation:        r.Operation,
		RequestID:        r.RequestID,
		state:            r.State(),
		done:             r.done,
	}
}

// ToProducerRequest builds the ProducerRequest krimson will actually send.
func (r *SourceRecord) ToProducerRequest() ProducerRequest {
	topic := r.DestinationTopic
	return ProducerRequest{
		Topic:     &topic,
		Key:       r.Key,
		Value:     r.Value,
		Headers:   r.Headers,
		EventTime: r.EventTime,
		RequestID: r.RequestID,
	}
}

// Checkpoint is the greatest event time (and the record that carried it)
// observed so far by one connector for one destination topic.
type Checkpoint struct {
	RecordID        string
	EventTimeMillis int64
}

// IsZero reports whether the checkpoint has never been advanced.
func (c Checkpoint) IsZero() bool {
	return c == Checkpoint{}
}
