// Package client builds a ready-to-use metastore cluster from configuration:
// discovery resolvers per URI scheme, the TCP factory and its middleware.
package client

import (
	"go.uber.org/zap"

	"metastore-cluster/address"
	"metastore-cluster/cluster"
	"metastore-cluster/config"
	"metastore-cluster/middleware"
	"metastore-cluster/registry"
	"metastore-cluster/transport"
)

// Client is a cluster plus the resources its resolvers hold open.
type Client struct {
	*cluster.Cluster
	etcd *registry.EtcdRegistry // nil unless etcd endpoints are configured
}

type options struct {
	factory   transport.Factory
	resolvers registry.Schemes
	clusterOp []cluster.Option
}

type Option func(*options)

// WithFactory replaces the TCP factory, e.g. with a thrift client factory.
// The configured connect timeout is enforced around it.
func WithFactory(f transport.Factory) Option {
	return func(o *options) { o.factory = f }
}

// WithResolver overrides the resolver for one URI scheme.
func WithResolver(scheme string, r registry.Resolver) Option {
	return func(o *options) { o.resolvers[scheme] = r }
}

// WithClusterOptions passes extra options through to cluster.New.
func WithClusterOptions(opts ...cluster.Option) Option {
	return func(o *options) { o.clusterOp = append(o.clusterOp, opts...) }
}

func New(cfg *config.Config, log *zap.Logger, opts ...Option) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	specs, err := cfg.Specs()
	if err != nil {
		return nil, err
	}

	c := &Client{}
	o := &options{resolvers: registry.Schemes{}}

	o.resolvers[address.SchemeConsul] = &registry.ConsulResolver{
		Scheme:     cfg.Consul.Scheme,
		Token:      cfg.Consul.Token,
		Datacenter: cfg.Consul.Datacenter,
		Tag:        cfg.Consul.Tag,
		Timeout:    cfg.Consul.Timeout,
		Log:        log,
	}
	if len(cfg.Etcd.Endpoints) > 0 {
		c.etcd, err = registry.NewEtcdRegistry(cfg.Etcd.Endpoints, cfg.Etcd.DialTimeout, cfg.Etcd.RequestTimeout, log)
		if err != nil {
			return nil, err
		}
		o.resolvers[address.SchemeEtcd] = c.etcd
	} else {
		o.resolvers[address.SchemeEtcd] = &registry.EtcdResolver{
			DialTimeout:    cfg.Etcd.DialTimeout,
			RequestTimeout: cfg.Etcd.RequestTimeout,
			Log:            log,
		}
	}

	for _, opt := range opts {
		opt(o)
	}

	mws := []middleware.Middleware{middleware.Logging(log)}
	if cfg.ConnectRate > 0 {
		mws = append(mws, middleware.RateLimit(cfg.ConnectRate, cfg.ConnectBurst))
	}
	factory := o.factory
	if factory == nil {
		factory = &transport.TCPFactory{Timeout: cfg.ConnectTimeout, SocksProxy: cfg.SocksProxy}
	} else if cfg.ConnectTimeout > 0 {
		mws = append(mws, middleware.Timeout(cfg.ConnectTimeout))
	}

	clusterOpts := append([]cluster.Option{
		cluster.WithResolver(o.resolvers),
		cluster.WithLogger(log),
	}, o.clusterOp...)

	c.Cluster, err = cluster.New(specs, middleware.Chain(mws...)(factory), clusterOpts...)
	if err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) Close() error {
	if c.etcd != nil {
		return c.etcd.Close()
	}
	return nil
}
