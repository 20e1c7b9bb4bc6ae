package router

import "errors"

// BranchCase pairs a predicate with the handler run when it matches.
type BranchCase struct {
	Predicate func(ctx *RouterContext) bool
	Handler   Handler
}

// Branch runs every case whose predicate matches ctx, in declaration order,
// against the same context — so a record can fan out to more than one
// handler's outputs in a single pass. Adapted from the teacher's
// BranchProcessor, which forwards to every matching named branch rather
// than stopping at the first (that first-match behavior lives in KeyRouter
// / TopicRouter instead).
func Branch(cases ...BranchCase) Handler {
	return HandlerFunc(
		func(ctx *RouterContext) error {
			var errs []error
			for _, c := range cases {
				if c.Predicate(ctx) {
					if err := c.Handler.Handle(ctx); err != nil {
						errs = append(errs, err)
					}
				}
			}
			return errors.Join(errs...)
		},
	)
}
