package producer_test

import (
	"context"
	"errors"
	"testing"

	mockkafka "github.com/hugolhafner/krimson/kafka/mock"
	"github.com/hugolhafner/krimson/producer"
	"github.com/hugolhafner/krimson/record"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresClient(t *testing.T) {
	_, err := producer.New()
	require.Error(t, err)
	var cfgErr *producer.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestProduce_UsesExplicitTopic(t *testing.T) {
	client := mockkafka.NewClient()
	p, err := producer.New(producer.WithClient(client))
	require.NoError(t, err)

	topic := "orders"
	resultCh := make(chan record.ProducerResult, 1)
	p.Produce(context.Background(), record.PendingOutput{Topic: &topic, Value: []byte("hi")}, func(res record.ProducerResult) {
		resultCh <- res
	})

	res := <-resultCh
	require.True(t, res.Success)
	require.NotEmpty(t, res.RecordID)
}

func TestProduce_FallsBackToDefaultTopic(t *testing.T) {
	client := mockkafka.NewClient()
	p, err := producer.New(producer.WithClient(client), producer.WithDefaultTopic("fallback"))
	require.NoError(t, err)

	res, err := p.ProduceSync(context.Background(), record.PendingOutput{Value: []byte("v")}, true)
	require.NoError(t, err)
	require.True(t, res.Success)

	produced := client.ProducedRecords()
	require.Len(t, produced, 1)
	require.Equal(t, "fallback", produced[0].Topic)
}

func TestProduce_NoTopicNoDefaultFailsWithConfigurationError(t *testing.T) {
	client := mockkafka.NewClient()
	p, err := producer.New(producer.WithClient(client))
	require.NoError(t, err)

	res, err := p.ProduceSync(context.Background(), record.PendingOutput{Value: []byte("v")}, true)
	require.Error(t, err)
	require.False(t, res.Success)
	var cfgErr *producer.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestProduceSync_ThrowOnErrorFalse_FoldsFailureIntoResult(t *testing.T) {
	sendErr := errors.New("broker unavailable")
	client := mockkafka.NewClient(mockkafka.WithSendError(func(record.ProducerRequest) error { return sendErr }))
	topic := "t"
	p, err := producer.New(producer.WithClient(client), producer.WithDefaultTopic(topic))
	require.NoError(t, err)

	res, err := p.ProduceSync(context.Background(), record.PendingOutput{Value: []byte("v")}, false)
	require.NoError(t, err)
	require.False(t, res.Success)
	require.ErrorIs(t, res.Err, sendErr)
}

func TestClose_IsIdempotentAndRejectsFurtherProduce(t *testing.T) {
	client := mockkafka.NewClient()
	topic := "t"
	p, err := producer.New(producer.WithClient(client), producer.WithDefaultTopic(topic))
	require.NoError(t, err)

	require.NoError(t, p.Close(context.Background()))
	require.NoError(t, p.Close(context.Background()))

	res, err := p.ProduceSync(context.Background(), record.PendingOutput{Value: []byte("v")}, true)
	require.ErrorIs(t, err, producer.ErrClosed)
	require.False(t, res.Success)
}
