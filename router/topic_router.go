package router

import "github.com/hugolhafner/krimson/record"

// TopicRouter dispatches by the record's source topic, the shape used when
// a single processor consumes several input topics with distinct handling.
type TopicRouter struct {
	table table
}

func NewTopicRouter() *TopicRouter {
	return &TopicRouter{}
}

// Route dispatches records from topic to h.
func (r *TopicRouter) Route(topic string, h Handler) *TopicRouter {
	return r.RouteFunc(func(rec *record.Record) bool { return rec.Topic == topic }, h)
}

// RouteFunc dispatches records matching predicate to h.
func (r *TopicRouter) RouteFunc(predicate func(rec *record.Record) bool, h Handler) *TopicRouter {
	r.table.add(predicate, h)
	return r
}

// Default sets the handler used when no route matches.
func (r *TopicRouter) Default(h Handler) *TopicRouter {
	r.table.setDefault(h)
	return r
}

func (r *TopicRouter) CanRoute(rec *record.Record) bool { return r.table.canRoute(rec) }

func (r *TopicRouter) Process(ctx *RouterContext) error {
	return r.table.resolve(ctx.Record()).Handle(ctx)
}
