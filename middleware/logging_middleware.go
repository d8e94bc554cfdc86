package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"metastore-cluster/address"
	"metastore-cluster/transport"
)

// Logging records every connection attempt and how long it took.
func Logging(log *zap.Logger) Middleware {
	return func(next transport.Factory) transport.Factory {
		return transport.FactoryFunc(func(ctx context.Context, addr address.HostPort) (transport.Client, error) {
			start := time.Now()
			c, err := next.Connect(ctx, addr)
			fields := []zap.Field{zap.Stringer("address", addr), zap.Duration("duration", time.Since(start))}
			if err != nil {
				log.Debug("metastore connect failed", append(fields, zap.Error(err))...)
				return nil, err
			}
			log.Debug("metastore connected", fields...)
			return c, nil
		})
	}
}
