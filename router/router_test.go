package router_test

import (
	"context"
	"testing"

	"github.com/hugolhafner/krimson/record"
	"github.com/hugolhafner/krimson/router"
	"github.com/stretchr/testify/require"
)

func rec(key, value string) *record.Record {
	return &record.Record{
		Position: record.Position{Topic: "orders", Partition: 0, Offset: 1},
		Key:      []byte(key),
		Value:    value,
	}
}

func TestKeyRouter_RoutesByExactKey(t *testing.T) {
	var handled string
	r := router.NewKeyRouter().
		Route([]byte("a"), router.HandlerFunc(func(ctx *router.RouterContext) error { handled = "a"; return nil })).
		Route([]byte("b"), router.HandlerFunc(func(ctx *router.RouterContext) error { handled = "b"; return nil }))

	input := rec("b", "v")
	require.True(t, r.CanRoute(input))
	require.NoError(t, r.Process(router.NewContext(context.Background(), input, nil, nil)))
	require.Equal(t, "b", handled)
}

func TestKeyRouter_NoMatchNoDefault_CannotRoute(t *testing.T) {
	r := router.NewKeyRouter().Route([]byte("a"), router.HandlerFunc(func(*router.RouterContext) error { return nil }))
	require.False(t, r.CanRoute(rec("z", "v")))
}

func TestTopicRouter_FallsBackToDefault(t *testing.T) {
	var handled string
	r := router.NewTopicRouter().
		Route("payments", router.HandlerFunc(func(*router.RouterContext) error { handled = "payments"; return nil })).
		Default(router.HandlerFunc(func(*router.RouterContext) error { handled = "default"; return nil }))

	require.NoError(t, r.Process(router.NewContext(context.Background(), rec("k", "v"), nil, nil)))
	require.Equal(t, "default", handled)
}

func TestRouterContext_ForwardToAccumulatesOutputs(t *testing.T) {
	topic := "events"
	ctx := router.NewContext(context.Background(), rec("a", "v"), nil, &topic)

	require.NoError(t, ctx.Forward("out-1"))
	require.NoError(t, ctx.ForwardTo("audit", "out-2"))

	outputs := ctx.GeneratedOutput()
	require.Len(t, outputs, 2)
	require.Equal(t, "events", *outputs[0].Topic)
	require.Equal(t, "audit", *outputs[1].Topic)
	require.Equal(t, []byte("a"), outputs[0].Key)
}

func TestRouterContext_ForwardWithoutDefaultTopicFails(t *testing.T) {
	ctx := router.NewContext(context.Background(), rec("a", "v"), nil, nil)
	require.Error(t, ctx.Forward("out"))
}

func TestFilter_SkipsWhenPredicateFalse(t *testing.T) {
	called := false
	h := router.Filter(
		func(ctx *router.RouterContext) bool { return ctx.Value() == "keep" },
		router.HandlerFunc(func(*router.RouterContext) error { called = true; return nil }),
	)

	require.NoError(t, h.Handle(router.NewContext(context.Background(), rec("a", "drop"), nil, nil)))
	require.False(t, called)

	require.NoError(t, h.Handle(router.NewContext(context.Background(), rec("a", "keep"), nil, nil)))
	require.True(t, called)
}

func TestMap_TransformsValueBeforeNext(t *testing.T) {
	var seen any
	h := router.Map(
		func(_ *router.RouterContext, v any) (any, error) { return v.(string) + "-mapped", nil },
		router.HandlerFunc(func(ctx *router.RouterContext) error { seen = ctx.Value(); return nil }),
	)

	require.NoError(t, h.Handle(router.NewContext(context.Background(), rec("a", "v"), nil, nil)))
	require.Equal(t, "v-mapped", seen)
}

func TestBranch_RunsEveryMatchingCase(t *testing.T) {
	topic := "out"
	ctx := router.NewContext(context.Background(), rec("a", "v"), nil, &topic)

	h := router.Branch(
		router.BranchCase{
			Predicate: func(*router.RouterContext) bool { return true },
			Handler:   router.HandlerFunc(func(c *router.RouterContext) error { return c.ForwardTo("t1", "v1") }),
		},
		router.BranchCase{
			Predicate: func(*router.RouterContext) bool { return true },
			Handler:   router.HandlerFunc(func(c *router.RouterContext) error { return c.ForwardTo("t2", "v2") }),
		},
	)

	require.NoError(t, h.Handle(ctx))
	require.Len(t, ctx.GeneratedOutput(), 2)
}
