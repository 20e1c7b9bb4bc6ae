package router

import (
	"time"

	"github.com/hugolhafner/dskit/backoff"
)

// Retry wraps next so that a failing Handle is retried, waiting b's delay
// between attempts, up to maxAttempts total. The last error is returned
// once attempts are exhausted; if the context is done while waiting, the
// context's error is returned instead. Grounded on the
// teacher's errorhandler.WithMaxAttempts, adapted from its
// ErrorContext/Action decision DSL into a plain Handler decorator.
func Retry(maxAttempts int, b backoff.Backoff, next Handler) Handler {
	return HandlerFunc(
		func(ctx *RouterContext) error {
			var err error
			for attempt := uint(0); ; attempt++ {
				if err = next.Handle(ctx); err == nil {
					return nil
				}
				if int(attempt)+1 >= maxAttempts {
					return err
				}
				select {
				case <-ctx.Context().Done():
					return ctx.Context().Err()
				case <-time.After(b.Next(attempt)):
				}
			}
		},
	)
}

// DLQ wraps next so that a failing Handle forwards the input record's
// deserialized value (and raw key) to topic instead of propagating the error, letting the processor
// keep making progress on a poison record instead of terminating.
// Grounded on the teacher's errorhandler.WithDLQ.
func DLQ(topic string, next Handler) Handler {
	return HandlerFunc(
		func(ctx *RouterContext) error {
			if err := next.Handle(ctx); err != nil {
				return ctx.ForwardTo(topic, ctx.Value(), WithKey(ctx.Key()))
			}
			return nil
		},
	)
}
