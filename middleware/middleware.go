// Package middleware decorates a transport.Factory. Decorators wrap a single
// connection attempt; they never retry.
package middleware

import "metastore-cluster/transport"

type Middleware func(next transport.Factory) transport.Factory

// Chain composes middlewares so that the first one is outermost:
// Chain(A, B)(f) behaves as A(B(f)).
func Chain(middlewares ...Middleware) Middleware {
	return func(next transport.Factory) transport.Factory {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
