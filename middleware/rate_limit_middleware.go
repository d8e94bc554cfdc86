package middleware

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	"metastore-cluster/address"
	"metastore-cluster/transport"
)

var ErrRateLimited = errors.New("connect rate limit exceeded")

// RateLimit caps connection attempts with a token bucket shared by every
// caller of the returned factory. An attempt over the limit fails at once.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next transport.Factory) transport.Factory {
		return transport.FactoryFunc(func(ctx context.Context, addr address.HostPort) (transport.Client, error) {
			if !limiter.Allow() {
				return nil, &transport.ConnectError{Addr: addr, Err: ErrRateLimited}
			}
			return next.Connect(ctx, addr)
		})
	}
}
