package connector_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hugolhafner/krimson/connector"
	"github.com/hugolhafner/krimson/kafka"
	mockkafka "github.com/hugolhafner/krimson/kafka/mock"
	"github.com/hugolhafner/krimson/record"
	"github.com/stretchr/testify/require"
)

func factoryFor(client *mockkafka.Client) func() (kafka.Client, error) {
	return func() (kafka.Client, error) { return client, nil }
}

// fakeConnector emits its records slice on every tick; the string TContext
// is ignored.
type fakeConnector struct {
	name       string
	records    []*record.SourceRecord
	successes  [][]*record.SourceRecord
	errs       []error
	initCalled int
	initErr    error
}

func (f *fakeConnector) Name() string { return f.name }

func (f *fakeConnector) ParseRecords(_ context.Context, _ string) (<-chan *record.SourceRecord, error) {
	ch := make(chan *record.SourceRecord, len(f.records))
	for _, r := range f.records {
		ch <- r
	}
	close(ch)
	return ch, nil
}

func (f *fakeConnector) Initialize(_ context.Context) error {
	f.initCalled++
	return f.initErr
}

func (f *fakeConnector) OnSuccess(_ context.Context, _ string, processed []*record.SourceRecord) {
	f.successes = append(f.successes, processed)
}

func (f *fakeConnector) OnError(_ context.Context, _ string, err error) {
	f.errs = append(f.errs, err)
}

func newSourceRecord(topic string, eventTime int64) *record.SourceRecord {
	rec := record.NewSourceRecord()
	rec.DestinationTopic = topic
	rec.Value = []byte("v")
	rec.EventTime = eventTime
	return rec
}

func TestRuntime_ProducesUnseenRecordsAndAdvancesCheckpoint(t *testing.T) {
	client := mockkafka.NewClient()
	fc := &fakeConnector{
		name: "orders-source",
		records: []*record.SourceRecord{
			newSourceRecord("orders", 100),
			newSourceRecord("orders", 200),
		},
	}

	rt, err := connector.New[string](
		fc,
		connector.WithClient(client),
		connector.WithReaderClientFactory(factoryFor(client)),
	)
	require.NoError(t, err)

	require.NoError(t, rt.Process(context.Background(), "tick-1"))

	require.Len(t, client.ProducedRecords(), 2)
	require.Equal(t, 1, fc.initCalled)
	require.Len(t, fc.successes, 1)
	require.Len(t, fc.successes[0], 2)
}

func TestRuntime_InitializeRunsExactlyOnce(t *testing.T) {
	client := mockkafka.NewClient()
	fc := &fakeConnector{name: "orders-source"}

	rt, err := connector.New[string](
		fc, connector.WithClient(client), connector.WithReaderClientFactory(factoryFor(client)),
	)
	require.NoError(t, err)

	require.NoError(t, rt.Process(context.Background(), "tick-1"))
	require.NoError(t, rt.Process(context.Background(), "tick-2"))
	require.Equal(t, 1, fc.initCalled)
}

func TestRuntime_SkipsRecordsAtOrBelowCheckpoint(t *testing.T) {
	client := mockkafka.NewClient(mockkafka.WithRecords("orders", 0, newSourceRecordAsRecord(150)))
	fc := &fakeConnector{
		name: "orders-source",
		records: []*record.SourceRecord{
			newSourceRecord("orders", 100), // at-or-below checkpoint: skipped
			newSourceRecord("orders", 300), // above checkpoint: produced
		},
	}

	rt, err := connector.New[string](
		fc, connector.WithClient(client), connector.WithReaderClientFactory(factoryFor(client)),
	)
	require.NoError(t, err)

	require.NoError(t, rt.Process(context.Background(), "tick-1"))

	produced := client.ProducedRecords()
	require.Len(t, produced, 1)
	require.Equal(t, int64(300), fc.records[1].EventTime)
}

func newSourceRecordAsRecord(eventTime int64) *record.Record {
	return &record.Record{Value: []byte("seed"), EventTime: eventTime}
}

func TestRuntime_ProduceFailureNaksRecordButTickStillSucceeds(t *testing.T) {
	client := mockkafka.NewClient(mockkafka.WithSendError(func(record.ProducerRequest) error { return errors.New("broker down") }))
	fc := &fakeConnector{
		name:    "orders-source",
		records: []*record.SourceRecord{newSourceRecord("orders", 100)},
	}

	rt, err := connector.New[string](
		fc, connector.WithClient(client), connector.WithReaderClientFactory(factoryFor(client)),
	)
	require.NoError(t, err)

	require.NoError(t, rt.Process(context.Background(), "tick-1"))

	require.Len(t, fc.successes, 1)
	require.Equal(t, record.Naked, fc.records[0].State().Kind)
	require.Empty(t, client.ProducedRecords())
}

func TestRuntime_MissingDestinationTopicIsNaked(t *testing.T) {
	client := mockkafka.NewClient()
	rec := record.NewSourceRecord()
	rec.EventTime = 1
	rec.Value = []byte("v")

	fc := &fakeConnector{name: "orders-source", records: []*record.SourceRecord{rec}}

	rt, err := connector.New[string](
		fc, connector.WithClient(client), connector.WithReaderClientFactory(factoryFor(client)),
	)
	require.NoError(t, err)

	require.NoError(t, rt.Process(context.Background(), "tick-1"))
	require.Equal(t, record.Naked, rec.State().Kind)
	require.ErrorIs(t, rec.State().Err, connector.ErrNoDestinationTopic)
}

func TestNew_RequiresClientAndReaderFactory(t *testing.T) {
	fc := &fakeConnector{name: "orders-source"}

	_, err := connector.New[string](fc)
	require.Error(t, err)

	client := mockkafka.NewClient()
	_, err = connector.New[string](fc, connector.WithClient(client))
	require.Error(t, err)
}
