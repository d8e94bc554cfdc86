// Package transport opens client connections to a single resolved
// metastore address.
package transport

import (
	"context"
	"fmt"
	"reflect"

	"metastore-cluster/address"
)

// Client is a connected metastore client handle.
type Client interface {
	Addr() address.HostPort
	Close() error
}

// IsNil reports whether c is nil or an interface holding a nil pointer,
// such as (*Conn)(nil).
func IsNil(c Client) bool {
	if c == nil {
		return true
	}
	v := reflect.ValueOf(c)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Factory attempts one connection to addr.
type Factory interface {
	Connect(ctx context.Context, addr address.HostPort) (Client, error)
}

type FactoryFunc func(ctx context.Context, addr address.HostPort) (Client, error)

func (f FactoryFunc) Connect(ctx context.Context, addr address.HostPort) (Client, error) {
	return f(ctx, addr)
}

// ConnectError is returned by factories in this module when a connection
// cannot be established.
type ConnectError struct {
	Addr address.HostPort
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }
