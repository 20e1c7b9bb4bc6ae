// Package schedule drives a connector's poll cadence: invoke a tick
// function on a timer, never overlap two ticks, and back off after a
// failed tick before trying again. Grounded on the teacher's
// runner/committer.PeriodicCommitter interval-plus-guard shape, repurposed
// from commit cadence to poll cadence.
package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hugolhafner/dskit/backoff"
	"github.com/hugolhafner/krimson/logger"
)

// TickFunc is invoked once per scheduled tick.
type TickFunc func(ctx context.Context) error

// Scheduler runs TickFunc at the pace set by its Backoff, resetting the
// attempt counter to zero after every successful tick and growing the
// delay after a failed one. Overlapping ticks are never queued: a tick is
// simply skipped if the previous one is still running when its delay
// elapses.
type Scheduler struct {
	tick    TickFunc
	backoff backoff.Backoff
	logger  logger.Logger

	running int32
	stopCh  chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// New builds a Scheduler. b and fn are required.
func New(fn TickFunc, b backoff.Backoff, l logger.Logger) *Scheduler {
	if l == nil {
		l = logger.NewNoopLogger()
	}
	return &Scheduler{
		tick:    fn,
		backoff: b,
		logger:  l,
		stopCh:  make(chan struct{}),
	}
}

// Start runs the scheduler loop in the background until ctx is done or Stop
// is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop halts the scheduler and waits for any in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.stopped.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// TriggerNow runs a tick immediately, outside the regular cadence, unless
// one is already running — in which case it is a no-op. Used by
// push-driven connectors (webhooks) alongside the regular timer.
func (s *Scheduler) TriggerNow(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&s.running, 0)

	if err := s.tick(ctx); err != nil {
		s.logger.Warn("connector: triggered tick failed", "error", err)
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	var attempt uint
	for {
		delay := s.backoff.Next(attempt)
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-time.After(delay):
		}

		if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
			continue
		}

		err := s.tick(ctx)
		atomic.StoreInt32(&s.running, 0)

		if err != nil {
			attempt++
			s.logger.Warn("connector: tick failed, backing off", "error", err, "attempt", attempt)
			continue
		}
		attempt = 0
	}
}
