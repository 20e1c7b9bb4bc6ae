package interceptor

import (
	"fmt"

	"github.com/hugolhafner/krimson/logger"
)

// Interceptor observes lifecycle events. Implementations must be pure
// observers: they must not mutate the record they're handed, and must not
// throw back into the pipeline. A panicking interceptor is isolated by the
// Chain, never propagated.
type Interceptor interface {
	OnEvent(ev Event)
}

// Func adapts a plain function to an Interceptor.
type Func func(ev Event)

func (f Func) OnEvent(ev Event) { f(ev) }

// Chain is an ordered, fixed sequence of interceptors. It is built once at
// processor/connector construction and is immutable thereafter: firing an
// event never mutates the chain itself, so concurrent Fire calls from the
// poll loop and from producer delivery callbacks are safe.
type Chain struct {
	interceptors []Interceptor
	logger       logger.Logger
}

// NewChain builds a chain from user interceptors in declaration order.
func NewChain(l logger.Logger, interceptors ...Interceptor) *Chain {
	if l == nil {
		l = logger.NewNoopLogger()
	}
	return &Chain{interceptors: interceptors, logger: l}
}

// WithBuiltins returns a new chain with the two built-in interceptors named
// by the spec — a structured logger and the broker-client log adapter —
// prepended ahead of the user interceptors already in c.
func (c *Chain) WithBuiltins(identity Identity) *Chain {
	builtins := []Interceptor{
		newLoggingInterceptor(c.logger, identity),
		newBrokerLogAdapter(c.logger, identity),
	}
	return &Chain{
		interceptors: append(builtins, c.interceptors...),
		logger:       c.logger,
	}
}

// Fire delivers ev to every interceptor in order. A panicking interceptor
// is recovered, logged, and does not stop delivery to the remaining
// interceptors (spec P7, observer isolation).
func (c *Chain) Fire(ev Event) {
	for _, ic := range c.interceptors {
		c.fireOne(ic, ev)
	}
}

func (c *Chain) fireOne(ic Interceptor, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error(
				"interceptor panicked, isolating",
				"kind", ev.Kind().String(),
				"recovered", fmt.Sprint(r),
			)
		}
	}()
	ic.OnEvent(ev)
}

// loggingInterceptor renders lifecycle events as structured log lines.
type loggingInterceptor struct {
	l        logger.Logger
	identity Identity
}

func newLoggingInterceptor(l logger.Logger, identity Identity) *loggingInterceptor {
	return &loggingInterceptor{l: l, identity: identity}
}

func (i *loggingInterceptor) OnEvent(ev Event) {
	switch e := ev.(type) {
	case ProcessorActivatedEvent:
		i.l.Info("processor activated", "name", i.identity.Name, "group", i.identity.GroupID)
	case ProcessorTerminatingEvent:
		i.l.Info("processor terminating", "name", i.identity.Name)
	case ProcessorTerminatedEvent:
		if e.Err != nil {
			i.l.Error("processor terminated", "name", i.identity.Name, "error", e.Err, "gaps", len(e.Gaps))
		} else {
			i.l.Info("processor terminated", "name", i.identity.Name, "gaps", len(e.Gaps))
		}
	case InputErrorEvent:
		i.l.Error(
			"error processing input", "name", i.identity.Name, "error", e.Err,
			"topic", e.Record.Topic, "partition", e.Record.Partition, "offset", e.Record.Offset,
		)
	case PartitionsAssignedEvent:
		i.l.Info("partitions assigned", "name", i.identity.Name, "count", len(e.Partitions))
	case PartitionsRevokedEvent:
		i.l.Info("partitions revoked", "name", i.identity.Name, "count", len(e.Partitions))
	case PartitionsLostEvent:
		i.l.Warn("partitions lost", "name", i.identity.Name, "count", len(e.Partitions))
	case ProcessorTerminatedUserHandlingErrorEvent:
		i.l.Error("on-terminated handler failed", "name", i.identity.Name, "error", e.Err)
	}
}

// brokerLogAdapter re-emits broker client log lines (ConsumerLogEvent /
// ConsumerErrorEvent) into the configured logger, so applications that only
// look at interceptor events still see the underlying client's diagnostics.
type brokerLogAdapter struct {
	l        logger.Logger
	identity Identity
}

func newBrokerLogAdapter(l logger.Logger, identity Identity) *brokerLogAdapter {
	return &brokerLogAdapter{l: l, identity: identity}
}

func (a *brokerLogAdapter) OnEvent(ev Event) {
	switch e := ev.(type) {
	case ConsumerLogEvent:
		a.l.Debug(e.Message, "name", a.identity.Name, "level", e.Level)
	case ConsumerErrorEvent:
		if e.Fatal {
			a.l.Error("broker client error", "name", a.identity.Name, "error", e.Err)
		} else {
			a.l.Warn("broker client error", "name", a.identity.Name, "error", e.Err)
		}
	}
}
