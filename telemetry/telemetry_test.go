package telemetry_test

import (
	"testing"

	"github.com/hugolhafner/krimson/record"
	"github.com/hugolhafner/krimson/telemetry"
	"github.com/stretchr/testify/require"
)

func TestNoop_ReturnsUsableInstruments(t *testing.T) {
	tel := telemetry.Noop()
	require.NotNil(t, tel.Tracer)
	require.NotNil(t, tel.Propagator)
	require.NotNil(t, tel.MessagesConsumed)
	require.NotNil(t, tel.ProcessDuration)
	require.NotNil(t, tel.MessagesProduced)
	require.NotNil(t, tel.Errors)
	require.NotNil(t, tel.TasksActive)
	require.NotNil(t, tel.CheckpointAdvances)
}

func TestHeadersCarrier_SetGetKeys(t *testing.T) {
	headers := []record.Header{{Key: "existing", Value: []byte("v")}}
	carrier := telemetry.HeadersCarrier{Headers: &headers}

	carrier.Set("traceparent", "00-abc-def-01")
	require.Equal(t, "00-abc-def-01", carrier.Get("traceparent"))
	require.Equal(t, "v", carrier.Get("existing"))
	require.Equal(t, "", carrier.Get("missing"))
	require.ElementsMatch(t, []string{"existing", "traceparent"}, carrier.Keys())

	carrier.Set("traceparent", "00-abc-def-02")
	require.Len(t, headers, 2)
	require.Equal(t, "00-abc-def-02", carrier.Get("traceparent"))
}
