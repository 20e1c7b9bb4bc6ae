package router

// Filter wraps next so it only runs when predicate accepts the context's
// value; otherwise the record is silently dropped (no output, no error) —
// adapted from the teacher's FilterProcessor, repurposed from a topology
// stage onto a single-handler decorator.
func Filter(predicate func(ctx *RouterContext) bool, next Handler) Handler {
	return HandlerFunc(
		func(ctx *RouterContext) error {
			if !predicate(ctx) {
				return nil
			}
			return next.Handle(ctx)
		},
	)
}

// FilterNot is Filter with the predicate inverted.
func FilterNot(predicate func(ctx *RouterContext) bool, next Handler) Handler {
	return Filter(func(ctx *RouterContext) bool { return !predicate(ctx) }, next)
}
