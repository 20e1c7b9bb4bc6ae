package consumer_test

import (
	"context"
	"testing"
	"time"

	"github.com/hugolhafner/krimson/consumer"
	mockkafka "github.com/hugolhafner/krimson/kafka/mock"
	"github.com/hugolhafner/krimson/record"
	"github.com/stretchr/testify/require"
)

func seedRecord(value string) *record.Record {
	return &record.Record{Value: []byte(value)}
}

func TestAdapter_ConsumesSeededRecords(t *testing.T) {
	client := mockkafka.NewClient(mockkafka.WithRecords("orders", 0, seedRecord("a"), seedRecord("b")))
	a, err := consumer.New(consumer.WithClient(client), consumer.WithTopics("orders"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case rec := <-a.Records():
			got = append(got, string(rec.Value.([]byte)))
			a.TrackPosition(rec)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for record")
		}
	}
	require.Equal(t, []string{"a", "b"}, got)
}

func TestAdapter_StopIsIdempotentGuard(t *testing.T) {
	client := mockkafka.NewClient(mockkafka.WithRecords("orders", 0, seedRecord("a")))
	a, err := consumer.New(consumer.WithClient(client), consumer.WithTopics("orders"))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	select {
	case <-a.Records():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for record")
	}

	_, err = a.Stop(ctx)
	require.NoError(t, err)

	_, err = a.Stop(ctx)
	require.ErrorIs(t, err, consumer.ErrAlreadyStopped)
}

func TestAdapter_TrackPositionThenStopCommitsReadyOffset(t *testing.T) {
	client := mockkafka.NewClient(
		mockkafka.WithRecords("orders", 0, seedRecord("a"), seedRecord("b")),
		mockkafka.WithWatermark("orders", 0, 0, 2),
	)
	a, err := consumer.New(consumer.WithClient(client), consumer.WithTopics("orders"))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	for i := 0; i < 2; i++ {
		rec := <-a.Records()
		a.TrackPosition(rec)
	}

	gaps, err := a.Stop(ctx)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	require.Equal(t, int64(2), gaps[0].Current)
	require.Equal(t, int64(2), gaps[0].End)
	require.Equal(t, int64(0), gaps[0].Gap())

	off, ok := client.CommittedOffset(record.TopicPartition{Topic: "orders", Partition: 0})
	require.True(t, ok)
	require.Equal(t, int64(2), off)
}

func TestAdapter_RevokeRunsBeforeRevokeHookThenCommitsThenDropsTracking(t *testing.T) {
	tp := record.TopicPartition{Topic: "orders", Partition: 0}
	client := mockkafka.NewClient(
		mockkafka.WithRecords("orders", 0, seedRecord("a"), seedRecord("b")),
		mockkafka.WithWatermark("orders", 0, 0, 2),
	)

	var beforeRevokeRan bool
	a, err := consumer.New(
		consumer.WithClient(client), consumer.WithTopics("orders"),
		consumer.WithRebalanceHooks(
			consumer.RebalanceHooks{
				BeforeRevoke: func() { beforeRevokeRan = true },
			},
		),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))

	for i := 0; i < 2; i++ {
		rec := <-a.Records()
		a.TrackPosition(rec)
	}

	client.TriggerRevoked(ctx, []record.TopicPartition{tp})

	require.True(t, beforeRevokeRan, "BeforeRevoke must run before the adapter commits and drops tracking")

	off, ok := client.CommittedOffset(tp)
	require.True(t, ok)
	require.Equal(t, int64(2), off, "revoke must commit every ready offset tracked before it fired")
}

func TestAdapter_LostRunsBeforeLostHookThenCommitsThenDropsTracking(t *testing.T) {
	tp := record.TopicPartition{Topic: "orders", Partition: 0}
	client := mockkafka.NewClient(
		mockkafka.WithRecords("orders", 0, seedRecord("a")),
		mockkafka.WithWatermark("orders", 0, 0, 1),
	)

	var beforeLostRan bool
	a, err := consumer.New(
		consumer.WithClient(client), consumer.WithTopics("orders"),
		consumer.WithRebalanceHooks(
			consumer.RebalanceHooks{
				BeforeLost: func() { beforeLostRan = true },
			},
		),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))

	rec := <-a.Records()
	a.TrackPosition(rec)

	client.TriggerLost(ctx, []record.TopicPartition{tp})

	require.True(t, beforeLostRan, "BeforeLost must run when partitions are lost")

	off, ok := client.CommittedOffset(tp)
	require.True(t, ok, "a lost partition still gets a best-effort commit of its tracked ready offset")
	require.Equal(t, int64(1), off)
}

func TestAdapter_PartitionEndHookFiresOnceCaughtUp(t *testing.T) {
	client := mockkafka.NewClient(
		mockkafka.WithRecords("orders", 0, seedRecord("a")),
		mockkafka.WithWatermark("orders", 0, 0, 1),
	)
	a, err := consumer.New(consumer.WithClient(client), consumer.WithTopics("orders"))
	require.NoError(t, err)

	endCh := make(chan record.Position, 4)
	a.WithPartitionEnd(func(pos record.Position) { endCh <- pos })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))

	rec := <-a.Records()
	require.Equal(t, "a", string(rec.Value.([]byte)))

	select {
	case pos := <-endCh:
		require.Equal(t, "orders", pos.Topic)
		require.Equal(t, int64(1), pos.Offset)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for partition end")
	}
}
