package schedule_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hugolhafner/dskit/backoff"
	"github.com/hugolhafner/krimson/connector/schedule"
	"github.com/hugolhafner/krimson/logger"
	"github.com/stretchr/testify/require"
)

func TestScheduler_TicksRepeatedlyAtBackoffCadence(t *testing.T) {
	var ticks int32
	s := schedule.New(
		func(context.Context) error {
			atomic.AddInt32(&ticks, 1)
			return nil
		}, backoff.NewFixed(10*time.Millisecond), logger.NewNoopLogger(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	require.Eventually(t, func() bool { return atomic.LoadInt32(&ticks) >= 3 }, time.Second, 5*time.Millisecond)

	cancel()
	s.Stop()
}

func TestScheduler_NeverOverlapsTicks(t *testing.T) {
	var inFlight int32
	var overlapped int32

	s := schedule.New(
		func(context.Context) error {
			if !atomic.CompareAndSwapInt32(&inFlight, 0, 1) {
				atomic.StoreInt32(&overlapped, 1)
			}
			time.Sleep(20 * time.Millisecond)
			atomic.StoreInt32(&inFlight, 0)
			return nil
		}, backoff.NewFixed(1*time.Millisecond), logger.NewNoopLogger(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(100 * time.Millisecond)
	cancel()
	s.Stop()

	require.Zero(t, overlapped)
}

func TestScheduler_TriggerNowRunsImmediately(t *testing.T) {
	var ticks int32
	s := schedule.New(
		func(context.Context) error {
			atomic.AddInt32(&ticks, 1)
			return nil
		}, backoff.NewFixed(time.Hour), logger.NewNoopLogger(),
	)

	s.TriggerNow(context.Background())
	require.Equal(t, int32(1), ticks)
}

func TestScheduler_StopWaitsForInFlightTick(t *testing.T) {
	var inFlight int32
	var startOnce sync.Once
	started := make(chan struct{})
	s := schedule.New(
		func(context.Context) error {
			atomic.StoreInt32(&inFlight, 1)
			startOnce.Do(func() { close(started) })
			time.Sleep(20 * time.Millisecond)
			atomic.StoreInt32(&inFlight, 0)
			return nil
		}, backoff.NewFixed(time.Millisecond), logger.NewNoopLogger(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	require.Eventually(t, func() bool {
		select {
		case <-started:
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)

	cancel()
	s.Stop()
	require.Zero(t, atomic.LoadInt32(&inFlight))
}

func TestScheduler_BackoffAfterFailure(t *testing.T) {
	var calls int32
	failOnce := errors.New("boom")
	s := schedule.New(
		func(context.Context) error {
			n := atomic.AddInt32(&calls, 1)
			if n == 1 {
				return failOnce
			}
			return nil
		}, backoff.NewFixed(5*time.Millisecond), logger.NewNoopLogger(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	s.Stop()
}
