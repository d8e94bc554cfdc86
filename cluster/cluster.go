// Package cluster turns a configured list of metastore endpoints into one
// connected client.
//
// Every AcquireClient call works from scratch:
//
//	configured specs ──expand──► candidates ──connect──► first client
//	  [primary, fb1, fb2]         primary addrs first,     or ResolutionError /
//	  (discovery looked up)       fallback addrs shuffled   ConnectionError
//
// Nothing is cached between calls and nothing runs in parallel within one.
package cluster

import (
	"context"
	"errors"
	"math/rand/v2"

	"go.uber.org/zap"

	"metastore-cluster/address"
	"metastore-cluster/registry"
	"metastore-cluster/transport"
)

const DefaultServiceName = "Hive metastore"

var (
	ErrNoResolver  = errors.New("cluster: discovery URI configured without a resolver")
	ErrNoFactory   = errors.New("cluster: nil client factory")
	ErrNoInstances = errors.New("no live instances registered")
	errNilClient   = errors.New("factory returned no client")
)

// Cluster is safe for concurrent use; its only state is the immutable spec list.
type Cluster struct {
	specs    []address.Spec
	resolver registry.Resolver
	factory  transport.Factory
	log      *zap.Logger
	shuffle  func(n int, swap func(i, j int))
	service  string
}

type Option func(*Cluster)

// WithResolver sets the directory used for discovery URIs.
func WithResolver(r registry.Resolver) Option {
	return func(c *Cluster) { c.resolver = r }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Cluster) { c.log = log }
}

// WithShuffle replaces the fallback shuffle, which defaults to
// math/rand/v2.Shuffle. The function must be safe for concurrent use.
func WithShuffle(shuffle func(n int, swap func(i, j int))) Option {
	return func(c *Cluster) { c.shuffle = shuffle }
}

// WithServiceName sets the label used in error messages.
func WithServiceName(name string) Option {
	return func(c *Cluster) { c.service = name }
}

// New validates the spec list once; it is never modified afterwards.
func New(specs []address.Spec, factory transport.Factory, opts ...Option) (*Cluster, error) {
	if len(specs) == 0 {
		return nil, address.ErrEmpty
	}
	if factory == nil {
		return nil, ErrNoFactory
	}

	c := &Cluster{
		specs:   append([]address.Spec(nil), specs...),
		factory: factory,
		log:     zap.NewNop(),
		shuffle: rand.Shuffle,
		service: DefaultServiceName,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.resolver == nil {
		for _, s := range c.specs {
			if s.Kind == address.Discovery {
				return nil, ErrNoResolver
			}
		}
	}
	return c, nil
}

// Specs returns a copy of the configured endpoint list.
func (c *Cluster) Specs() []address.Spec {
	return append([]address.Spec(nil), c.specs...)
}

// AcquireClient returns a client for the first candidate that connects.
// Otherwise it returns a *ResolutionError when no candidate address could be
// produced, or a *ConnectionError when every candidate failed to connect.
//
// ctx is handed to the resolver and the factory unchanged.
func (c *Cluster) AcquireClient(ctx context.Context) (transport.Client, error) {
	candidates, report := c.Candidates(ctx)

	for _, cand := range candidates {
		client, err := c.factory.Connect(ctx, cand.Addr)
		if err == nil && transport.IsNil(client) {
			err = errNilClient
		}
		if err == nil {
			c.log.Debug("metastore client acquired",
				zap.Stringer("address", cand.Addr),
				zap.Int("spec_index", cand.SpecIndex),
				zap.Int("attempts", len(report.ConnectFailures())+1))
			return client, nil
		}

		report.add(Outcome{Kind: ConnectFailure, SpecIndex: cand.SpecIndex, Spec: cand.Spec, Addr: cand.Addr, Err: err})
		c.log.Warn("metastore connect failed",
			zap.Stringer("address", cand.Addr),
			zap.String("uri", cand.Spec.String()),
			zap.Error(err))
	}

	var err error
	if len(candidates) == 0 {
		err = newResolutionError(c.service, report)
	} else {
		err = newConnectionError(c.service, c.specs, report)
	}
	c.log.Error("metastore unavailable", zap.Error(err), zap.NamedError("causes", report.Err()))
	return nil, err
}
