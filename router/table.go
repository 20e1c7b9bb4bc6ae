package router

import "github.com/hugolhafner/krimson/record"

// route pairs a predicate over a record with the handler that owns it.
type route struct {
	predicate func(rec *record.Record) bool
	handler   Handler
}

// table is the shared predicate-to-handler dispatch table underlying both
// KeyRouter and TopicRouter: the first matching route wins, in declaration
// order, mirroring the teacher's Branch semantics ("each record goes to the
// first branch whose predicate matches").
type table struct {
	routes  []route
	fallthr Handler
}

func (t *table) add(predicate func(*record.Record) bool, h Handler) {
	t.routes = append(t.routes, route{predicate: predicate, handler: h})
}

func (t *table) setDefault(h Handler) { t.fallthr = h }

func (t *table) resolve(rec *record.Record) Handler {
	for _, r := range t.routes {
		if r.predicate(rec) {
			return r.handler
		}
	}
	return t.fallthr
}

func (t *table) canRoute(rec *record.Record) bool {
	return t.resolve(rec) != nil
}
