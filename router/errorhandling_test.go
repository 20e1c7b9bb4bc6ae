package router_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hugolhafner/dskit/backoff"
	"github.com/hugolhafner/krimson/logger"
	"github.com/hugolhafner/krimson/record"
	"github.com/hugolhafner/krimson/router"
	"github.com/stretchr/testify/require"
)

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	var attempts int
	next := router.HandlerFunc(
		func(ctx *router.RouterContext) error {
			attempts++
			if attempts < 3 {
				return errors.New("transient")
			}
			return nil
		},
	)

	h := router.Retry(5, backoff.NewFixed(time.Millisecond), next)
	ctx := router.NewContext(context.Background(), &record.Record{Value: []byte("v")}, logger.NewNoopLogger(), nil)
	require.NoError(t, h.Handle(ctx))
	require.Equal(t, 3, attempts)
}

func TestRetry_ReturnsLastErrorOnceExhausted(t *testing.T) {
	boom := errors.New("boom")
	next := router.HandlerFunc(func(*router.RouterContext) error { return boom })

	h := router.Retry(3, backoff.NewFixed(time.Millisecond), next)
	ctx := router.NewContext(context.Background(), &record.Record{Value: []byte("v")}, logger.NewNoopLogger(), nil)
	require.ErrorIs(t, h.Handle(ctx), boom)
}

func TestDLQ_ForwardsToTopicInsteadOfPropagatingError(t *testing.T) {
	next := router.HandlerFunc(func(*router.RouterContext) error { return errors.New("boom") })
	h := router.DLQ("dead-letters", next)

	ctx := router.NewContext(context.Background(), &record.Record{Value: []byte("v"), Key: []byte("k")}, logger.NewNoopLogger(), nil)
	require.NoError(t, h.Handle(ctx))

	outputs := ctx.GeneratedOutput()
	require.Len(t, outputs, 1)
	require.Equal(t, "dead-letters", *outputs[0].Topic)
	require.Equal(t, []byte("k"), outputs[0].Key)
}

func TestDLQ_PassesThroughOnSuccess(t *testing.T) {
	next := router.HandlerFunc(func(*router.RouterContext) error { return nil })
	h := router.DLQ("dead-letters", next)

	ctx := router.NewContext(context.Background(), &record.Record{Value: []byte("v")}, logger.NewNoopLogger(), nil)
	require.NoError(t, h.Handle(ctx))
	require.Empty(t, ctx.GeneratedOutput())
}
