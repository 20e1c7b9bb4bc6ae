package router

import "github.com/hugolhafner/krimson/record"

// KeyRouter dispatches by an exact match (or predicate) over the record's
// key, the "key predicates to tagged handlers" shape spec.md's design notes
// call out as the typical Router implementation.
type KeyRouter struct {
	table table
}

// NewKeyRouter builds an empty KeyRouter. Routes are declared with Route/
// RouteFunc and matched in declaration order; Default sets the handler used
// when no route matches.
func NewKeyRouter() *KeyRouter {
	return &KeyRouter{}
}

// Route dispatches records whose key equals key (byte-for-byte) to h.
func (r *KeyRouter) Route(key []byte, h Handler) *KeyRouter {
	return r.RouteFunc(func(rec *record.Record) bool { return string(rec.Key) == string(key) }, h)
}

// RouteFunc dispatches records matching predicate to h.
func (r *KeyRouter) RouteFunc(predicate func(rec *record.Record) bool, h Handler) *KeyRouter {
	r.table.add(predicate, h)
	return r
}

// Default sets the handler used when no route matches. Without a default,
// CanRoute returns false for unmatched records and the processor skips them.
func (r *KeyRouter) Default(h Handler) *KeyRouter {
	r.table.setDefault(h)
	return r
}

func (r *KeyRouter) CanRoute(rec *record.Record) bool { return r.table.canRoute(rec) }

func (r *KeyRouter) Process(ctx *RouterContext) error {
	return r.table.resolve(ctx.Record()).Handle(ctx)
}
