package record_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hugolhafner/krimson/record"
	"github.com/stretchr/testify/require"
)

func TestSourceRecord_AckIsTerminalAndIdempotent(t *testing.T) {
	r := record.NewSourceRecord()
	require.Equal(t, record.Pending, r.State().Kind)

	r.Ack("rec-1")
	r.Ack("rec-2") // ignored, first write wins
	r.Nak(errors.New("boom"))

	state := r.State()
	require.Equal(t, record.Acked, state.Kind)
	require.Equal(t, "rec-1", state.RecordID)
	require.NoError(t, state.Err)
}

func TestSourceRecord_EnsureProcessedResolvesOnAck(t *testing.T) {
	r := record.NewSourceRecord()

	done := make(chan error, 1)
	go func() {
		done <- r.EnsureProcessed(context.Background())
	}()

	time.Sleep(10 * time.Millisecond)
	r.Ack("rec-1")

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("EnsureProcessed did not resolve after Ack")
	}
}

func TestSourceRecord_EnsureProcessedRespectsContext(t *testing.T) {
	r := record.NewSourceRecord()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.EnsureProcessed(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCheckpoint_IsZero(t *testing.T) {
	require.True(t, record.Checkpoint{}.IsZero())
	require.False(t, record.Checkpoint{EventTimeMillis: 1}.IsZero())
}

func TestSubscriptionTopicGap_Gap(t *testing.T) {
	g := record.SubscriptionTopicGap{Current: 10, End: 15}
	require.Equal(t, int64(5), g.Gap())

	g2 := record.SubscriptionTopicGap{Current: 15, End: 10}
	require.Equal(t, int64(0), g2.Gap())
}
