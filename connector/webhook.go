package connector

import "context"

// PushDriver drives a Runtime's ticks from an inbound channel of contexts
// rather than schedule.Scheduler's timer — the shape a webhook-backed
// DataSourceConnector needs: one tick per inbound push, in arrival order,
// reusing the exact same pull/dedup/produce/checkpoint path as a
// timer-driven connector.
type PushDriver[TContext any] struct {
	runtime *Runtime[TContext]
}

// NewPushDriver wraps rt for push-driven ticking.
func NewPushDriver[TContext any](rt *Runtime[TContext]) *PushDriver[TContext] {
	return &PushDriver[TContext]{runtime: rt}
}

// Run processes every value received on requests, one at a time, until the
// channel closes or ctx is done. A tick's error is discarded here, with no
// logging or back-off: Runtime.Process has already reported it through the
// interceptor chain and the connector's own ErrorHandler.
func (d *PushDriver[TContext]) Run(ctx context.Context, requests <-chan TContext) {
	for {
		select {
		case tctx, ok := <-requests:
			if !ok {
				return
			}
			_ = d.runtime.Process(ctx, tctx)
		case <-ctx.Done():
			return
		}
	}
}
