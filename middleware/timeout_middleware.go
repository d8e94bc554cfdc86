package middleware

import (
	"context"
	"time"

	"metastore-cluster/address"
	"metastore-cluster/transport"
)

type connectResult struct {
	client transport.Client
	err    error
}

// Timeout bounds each connect. The attempt runs in its own goroutine so a
// factory that ignores ctx cannot stall the caller; a client that arrives
// after the deadline is closed.
func Timeout(timeout time.Duration) Middleware {
	return func(next transport.Factory) transport.Factory {
		return transport.FactoryFunc(func(ctx context.Context, addr address.HostPort) (transport.Client, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan connectResult, 1)
			go func() {
				c, err := next.Connect(ctx, addr)
				done <- connectResult{client: c, err: err}
			}()

			select {
			case res := <-done:
				return res.client, res.err
			case <-ctx.Done():
				go func() {
					if res := <-done; !transport.IsNil(res.client) {
						res.client.Close()
					}
				}()
				return nil, &transport.ConnectError{Addr: addr, Err: ctx.Err()}
			}
		})
	}
}
