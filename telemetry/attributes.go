package telemetry

import "go.opentelemetry.io/otel/attribute"

// Attribute keys attached to spans and log records across krimson.
const (
	AttrProcessorName = attribute.Key("krimson.processor.name")
	AttrGroupID       = attribute.Key("krimson.consumer.group_id")
	AttrTopic         = attribute.Key("krimson.topic")
	AttrPartition     = attribute.Key("krimson.partition")
	AttrOffset        = attribute.Key("krimson.offset")

	AttrInputTopic  = attribute.Key("krimson.input.topic")
	AttrOutputTopic = attribute.Key("krimson.output.topic")

	AttrProcessStatus = attribute.Key("krimson.process.status")
	AttrProduceStatus = attribute.Key("krimson.produce.status")
	AttrPollStatus    = attribute.Key("krimson.poll.status")

	AttrConnectorName = attribute.Key("krimson.connector.name")
	AttrSourceName    = attribute.Key("krimson.connector.source")

	AttrErrorPhase = attribute.Key("krimson.error.phase")
)

// Values for AttrProcessStatus.
const (
	ProcessStatusSuccess = "success"
	ProcessStatusSkipped = "skipped"
	ProcessStatusError   = "error"
)

// Values for AttrProduceStatus.
const (
	ProduceStatusSuccess = "success"
	ProduceStatusFailure = "failure"
)

// Values for AttrPollStatus.
const (
	PollStatusRecord = "record"
	PollStatusEmpty  = "empty"
	PollStatusError  = "error"
)

// Values for AttrErrorPhase.
const (
	ErrorPhaseConsume  = "consume"
	ErrorPhaseProcess  = "process"
	ErrorPhaseProduce  = "produce"
	ErrorPhaseCommit   = "commit"
	ErrorPhaseConnect  = "connect"
	ErrorPhaseCheckpoint = "checkpoint"
)
