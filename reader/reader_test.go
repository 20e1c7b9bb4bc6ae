package reader_test

import (
	"context"
	"testing"
	"time"

	"github.com/hugolhafner/krimson/kafka"
	mockkafka "github.com/hugolhafner/krimson/kafka/mock"
	"github.com/hugolhafner/krimson/reader"
	"github.com/hugolhafner/krimson/record"
	"github.com/stretchr/testify/require"
)

func rec(v string) *record.Record { return &record.Record{Value: []byte(v)} }

func factoryFor(client *mockkafka.Client) func() (kafka.Client, error) {
	return func() (kafka.Client, error) { return client, nil }
}

func drain(t *testing.T, ch <-chan *record.Record, timeout time.Duration) []string {
	t.Helper()
	var got []string
	deadline := time.After(timeout)
	for {
		select {
		case rec, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, string(rec.Value.([]byte)))
		case <-deadline:
			t.Fatal("timed out draining records")
		}
	}
}

func TestRecords_AnyPartitionReadsToEndThenCloses(t *testing.T) {
	client := mockkafka.NewClient(
		mockkafka.WithRecords("orders", 0, rec("a"), rec("b")),
		mockkafka.WithRecords("orders", 1, rec("c")),
	)

	r, err := reader.New(reader.WithClientFactory(factoryFor(client)))
	require.NoError(t, err)

	ch, err := r.RecordsFromTopic(context.Background(), "orders")
	require.NoError(t, err)

	got := drain(t, ch, time.Second)
	require.ElementsMatch(t, []string{"a", "b", "c"}, got)
}

func TestRecords_ExplicitPartitionAndOffset(t *testing.T) {
	client := mockkafka.NewClient(mockkafka.WithRecords("orders", 0, rec("a"), rec("b"), rec("c")))

	r, err := reader.New(reader.WithClientFactory(factoryFor(client)))
	require.NoError(t, err)

	ch, err := r.Records(context.Background(), record.Position{Topic: "orders", Partition: 0, Offset: 1})
	require.NoError(t, err)

	got := drain(t, ch, time.Second)
	require.Equal(t, []string{"b", "c"}, got)
}

func TestGetLatestPositions(t *testing.T) {
	client := mockkafka.NewClient(mockkafka.WithWatermark("orders", 0, 0, 5), mockkafka.WithWatermark("orders", 1, 0, 3))

	r, err := reader.New(reader.WithClientFactory(factoryFor(client)))
	require.NoError(t, err)

	positions, err := r.GetLatestPositions(context.Background(), "orders")
	require.NoError(t, err)
	require.Len(t, positions, 2)

	byPartition := map[int32]int64{}
	for _, p := range positions {
		byPartition[p.Partition] = p.Offset
	}
	require.Equal(t, int64(5), byPartition[0])
	require.Equal(t, int64(3), byPartition[1])
}

func TestLastRecords_SkipsEmptyPartitions(t *testing.T) {
	client := mockkafka.NewClient(
		mockkafka.WithRecords("orders", 0, rec("a"), rec("b")),
		mockkafka.WithWatermark("orders", 1, 0, 0),
	)

	r, err := reader.New(reader.WithClientFactory(factoryFor(client)))
	require.NoError(t, err)

	records, err := r.LastRecords(context.Background(), "orders")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "b", string(records[0].Value.([]byte)))
}

func TestNew_RequiresClientFactory(t *testing.T) {
	_, err := reader.New()
	require.Error(t, err)
}
