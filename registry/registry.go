// Package registry looks up live metastore addresses in a service directory.
package registry

import (
	"context"
	"errors"
	"fmt"

	"metastore-cluster/address"
)

var ErrUnknownScheme = errors.New("registry: no resolver for scheme")

// Resolver returns the live addresses registered for ref. An empty result
// with a nil error means the directory answered but nothing is registered.
type Resolver interface {
	Resolve(ctx context.Context, ref address.Ref) ([]address.HostPort, error)
}

type ResolverFunc func(ctx context.Context, ref address.Ref) ([]address.HostPort, error)

func (f ResolverFunc) Resolve(ctx context.Context, ref address.Ref) ([]address.HostPort, error) {
	return f(ctx, ref)
}

// Instance is the value stored for one registered metastore.
type Instance struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Version string `json:"version,omitempty"`
}

func (i Instance) Addr() address.HostPort {
	return address.HostPort{Host: i.Host, Port: i.Port}
}

// Schemes dispatches a lookup to the resolver registered for the ref's scheme.
type Schemes map[string]Resolver

func (s Schemes) Resolve(ctx context.Context, ref address.Ref) ([]address.HostPort, error) {
	r, ok := s[ref.Scheme]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownScheme, ref.Scheme)
	}
	return r.Resolve(ctx, ref)
}
