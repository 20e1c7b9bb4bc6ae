package router

// MapFunc transforms a context's value before it reaches next.
type MapFunc func(ctx *RouterContext, value any) (any, error)

// Map runs mapper over the context's value and hands next a context whose
// Value() reflects the transformed value, so downstream handlers never see
// the original — adapted from the teacher's MapProcessor.
func Map(mapper MapFunc, next Handler) Handler {
	return HandlerFunc(
		func(ctx *RouterContext) error {
			mapped, err := mapper(ctx, ctx.Value())
			if err != nil {
				return err
			}
			mappedCtx := *ctx
			mappedCtx.record = ctx.record.Clone()
			mappedCtx.record.Value = mapped
			return next.Handle(&mappedCtx)
		},
	)
}
