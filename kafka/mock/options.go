package mockkafka

import (
	"github.com/hugolhafner/krimson/record"
)

type Option func(*Client)

// WithRecords seeds a partition's queue with records, in offset order.
// Each record's topic and partition are overwritten and its offset is set
// to its index in records (starting at 0); the partition's watermark becomes
// [0, len(records)].
func WithRecords(topic string, partition int32, records ...*record.Record) Option {
	return func(c *Client) {
		tp := record.TopicPartition{Topic: topic, Partition: partition}
		for i, r := range records {
			r.Topic = topic
			r.Partition = partition
			r.Offset = int64(i)
		}
		c.queues[tp] = append(c.queues[tp], records...)
		c.watermark[tp] = [2]int64{0, int64(len(records))}
	}
}

// WithWatermark overrides the low/high watermark reported for a partition.
func WithWatermark(topic string, partition int32, low, high int64) Option {
	return func(c *Client) {
		c.watermark[record.TopicPartition{Topic: topic, Partition: partition}] = [2]int64{low, high}
	}
}

// WithSendError calls fn for every Produce request; a non-nil result fails
// that delivery with the returned error, a nil result lets it through.
func WithSendError(fn func(record.ProducerRequest) error) Option {
	return func(c *Client) { c.sendErr = fn }
}

// WithPollError makes every Poll call fail with err.
func WithPollError(err error) Option {
	return func(c *Client) { c.pollErr = err }
}

// WithCommitError makes every Commit call fail with err.
func WithCommitError(err error) Option {
	return func(c *Client) { c.commitErr = err }
}
