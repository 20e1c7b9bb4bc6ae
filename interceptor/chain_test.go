package interceptor_test

import (
	"testing"

	"github.com/hugolhafner/krimson/interceptor"
	"github.com/stretchr/testify/require"
)

type recordingInterceptor struct {
	events []interceptor.Event
}

func (r *recordingInterceptor) OnEvent(ev interceptor.Event) {
	r.events = append(r.events, ev)
}

type panickingInterceptor struct{}

func (panickingInterceptor) OnEvent(interceptor.Event) {
	panic("boom")
}

func TestChain_FireDeliversInOrder(t *testing.T) {
	var order []string
	first := interceptor.Func(func(ev interceptor.Event) { order = append(order, "first") })
	second := interceptor.Func(func(ev interceptor.Event) { order = append(order, "second") })

	c := interceptor.NewChain(nil, first, second)
	c.Fire(interceptor.ProcessorActivatedEvent{})

	require.Equal(t, []string{"first", "second"}, order)
}

func TestChain_PanicIsIsolated(t *testing.T) {
	rec := &recordingInterceptor{}
	c := interceptor.NewChain(nil, panickingInterceptor{}, rec)

	require.NotPanics(t, func() {
		c.Fire(interceptor.ProcessorActivatedEvent{})
	})
	require.Len(t, rec.events, 1)
}

func TestChain_WithBuiltinsPrependsBuiltins(t *testing.T) {
	rec := &recordingInterceptor{}
	c := interceptor.NewChain(nil, rec).WithBuiltins(interceptor.Identity{Name: "orders"})

	// three interceptors total: 2 builtins + user's recordingInterceptor
	c.Fire(interceptor.ProcessorActivatedEvent{})
	require.Len(t, rec.events, 1)
}
