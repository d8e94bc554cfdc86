package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/consul/api"
	"go.uber.org/zap"

	"metastore-cluster/address"
)

const (
	defaultConsulAgent = "localhost:8500"

	DefaultConsulTimeout = 10 * time.Second
)

// ConsulResolver resolves consul:// refs against the agent named in the
// ref's authority. Only instances with passing checks are returned.
//
// One api.Client is kept per agent address and reused across lookups. A
// ConsulResolver must not be copied after first use.
type ConsulResolver struct {
	Scheme     string // http or https, default http
	Token      string
	Datacenter string
	Tag        string        // optional tag filter
	Timeout    time.Duration // per query, default DefaultConsulTimeout
	Log        *zap.Logger

	clients sync.Map // agent address -> *api.Client
}

func (c *ConsulResolver) Resolve(ctx context.Context, ref address.Ref) ([]address.HostPort, error) {
	agent := ref.Authority
	if agent == "" {
		agent = defaultConsulAgent
	}
	client, err := c.client(agent)
	if err != nil {
		return nil, err
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultConsulTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := (&api.QueryOptions{}).WithContext(ctx)
	entries, _, err := client.Health().Service(ref.Service, c.Tag, true, opts)
	if err != nil {
		return nil, fmt.Errorf("consul discover %q: %w", ref.Service, err)
	}

	addrs := make([]address.HostPort, 0, len(entries))
	for _, e := range entries {
		if e.Service == nil || e.Service.Port == 0 {
			continue
		}
		host := e.Service.Address
		if host == "" && e.Node != nil {
			host = e.Node.Address
		}
		if host == "" {
			c.logger().Warn("skipping consul entry without address", zap.String("service_id", e.Service.ID))
			continue
		}
		addrs = append(addrs, address.HostPort{Host: host, Port: e.Service.Port})
	}
	return addrs, nil
}

// client returns the cached client for agent, building it on first use.
func (c *ConsulResolver) client(agent string) (*api.Client, error) {
	if v, ok := c.clients.Load(agent); ok {
		return v.(*api.Client), nil
	}

	cfg := api.DefaultConfig()
	cfg.Address = agent
	if c.Scheme != "" {
		cfg.Scheme = c.Scheme
	}
	if c.Token != "" {
		cfg.Token = c.Token
	}
	if c.Datacenter != "" {
		cfg.Datacenter = c.Datacenter
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("consul client %s: %w", agent, err)
	}
	// A client that loses the race holds no connections yet; drop it.
	v, _ := c.clients.LoadOrStore(agent, client)
	return v.(*api.Client), nil
}

func (c *ConsulResolver) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}
