// Package interceptor implements the fixed-order lifecycle event fan-out
// described by the processor and connector runtime: a closed set of event
// kinds, each an immutable value, delivered to an ordered chain of
// observers that must never be allowed to disturb the pipeline they watch.
package interceptor

import (
	"github.com/hugolhafner/krimson/record"
)

// Kind identifies which of the fixed event shapes an Event carries.
type Kind int

const (
	KindConsumerLog Kind = iota
	KindConsumerError
	KindPartitionsAssigned
	KindPartitionsRevoked
	KindPartitionsLost
	KindPositionsCommitted
	KindPartitionEndReached
	KindProcessorActivated
	KindProcessorTerminating
	KindProcessorTerminated
	KindInputReady
	KindInputSkipped
	KindInputConsumed
	KindInputProcessed
	KindInputError
	KindOutputProcessed
	KindProcessorTerminatedUserHandlingError
)

func (k Kind) String() string {
	switch k {
	case KindConsumerLog:
		return "ConsumerLog"
	case KindConsumerError:
		return "ConsumerError"
	case KindPartitionsAssigned:
		return "PartitionsAssigned"
	case KindPartitionsRevoked:
		return "PartitionsRevoked"
	case KindPartitionsLost:
		return "PartitionsLost"
	case KindPositionsCommitted:
		return "PositionsCommitted"
	case KindPartitionEndReached:
		return "PartitionEndReached"
	case KindProcessorActivated:
		return "ProcessorActivated"
	case KindProcessorTerminating:
		return "ProcessorTerminating"
	case KindProcessorTerminated:
		return "ProcessorTerminated"
	case KindInputReady:
		return "InputReady"
	case KindInputSkipped:
		return "InputSkipped"
	case KindInputConsumed:
		return "InputConsumed"
	case KindInputProcessed:
		return "InputProcessed"
	case KindInputError:
		return "InputError"
	case KindOutputProcessed:
		return "OutputProcessed"
	case KindProcessorTerminatedUserHandlingError:
		return "ProcessorTerminatedUserHandlingError"
	default:
		return "Unknown"
	}
}

// Event is the marker interface implemented by every event value.
type Event interface {
	Kind() Kind
}

// Identity names the processor or connector that raised an event.
type Identity struct {
	Name    string
	GroupID string
}

type ConsumerLogEvent struct {
	Identity Identity
	Level    string
	Message  string
}

func (ConsumerLogEvent) Kind() Kind { return KindConsumerLog }

type ConsumerErrorEvent struct {
	Identity Identity
	Err      error
	Fatal    bool
}

func (ConsumerErrorEvent) Kind() Kind { return KindConsumerError }

type PartitionsAssignedEvent struct {
	Identity   Identity
	Partitions []record.TopicPartition
}

func (PartitionsAssignedEvent) Kind() Kind { return KindPartitionsAssigned }

type PartitionsRevokedEvent struct {
	Identity   Identity
	Partitions []record.TopicPartition
}

func (PartitionsRevokedEvent) Kind() Kind { return KindPartitionsRevoked }

type PartitionsLostEvent struct {
	Identity   Identity
	Partitions []record.TopicPartition
}

func (PartitionsLostEvent) Kind() Kind { return KindPartitionsLost }

type PositionsCommittedEvent struct {
	Identity Identity
	Offsets  map[record.TopicPartition]int64
}

func (PositionsCommittedEvent) Kind() Kind { return KindPositionsCommitted }

type PartitionEndReachedEvent struct {
	Identity Identity
	Position record.Position
}

func (PartitionEndReachedEvent) Kind() Kind { return KindPartitionEndReached }

type ProcessorActivatedEvent struct {
	Identity Identity
}

func (ProcessorActivatedEvent) Kind() Kind { return KindProcessorActivated }

type ProcessorTerminatingEvent struct {
	Identity Identity
}

func (ProcessorTerminatingEvent) Kind() Kind { return KindProcessorTerminating }

type ProcessorTerminatedEvent struct {
	Identity Identity
	Gaps     []record.SubscriptionTopicGap
	Err      error
}

func (ProcessorTerminatedEvent) Kind() Kind { return KindProcessorTerminated }

type InputReadyEvent struct {
	Identity Identity
	Record   *record.Record
}

func (InputReadyEvent) Kind() Kind { return KindInputReady }

type InputSkippedEvent struct {
	Identity Identity
	Record   *record.Record
}

func (InputSkippedEvent) Kind() Kind { return KindInputSkipped }

type InputConsumedEvent struct {
	Identity Identity
	Record   *record.Record
}

func (InputConsumedEvent) Kind() Kind { return KindInputConsumed }

type InputProcessedEvent struct {
	Identity Identity
	Record   *record.Record
	Outputs  int
}

func (InputProcessedEvent) Kind() Kind { return KindInputProcessed }

type InputErrorEvent struct {
	Identity Identity
	Record   *record.Record
	Err      error
}

func (InputErrorEvent) Kind() Kind { return KindInputError }

type OutputProcessedEvent struct {
	Identity Identity
	Request  record.ProducerRequest
	Result   record.ProducerResult
}

func (OutputProcessedEvent) Kind() Kind { return KindOutputProcessed }

type ProcessorTerminatedUserHandlingErrorEvent struct {
	Identity Identity
	Err      error
}

func (ProcessorTerminatedUserHandlingErrorEvent) Kind() Kind {
	return KindProcessorTerminatedUserHandlingError
}
