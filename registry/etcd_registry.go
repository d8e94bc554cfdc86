package registry

// etcd layout:
//
//	Key:   /metastore/{service}/{host:port}
//	Value: JSON-encoded Instance
//
// Registrations carry a TTL lease, so a metastore that dies without
// deregistering drops out of lookups once the lease expires.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"metastore-cluster/address"
)

const (
	etcdPrefix = "/metastore/"

	DefaultEtcdRequestTimeout = 5 * time.Second
)

// EtcdRegistry registers and resolves metastores in etcd v3.
type EtcdRegistry struct {
	client  *clientv3.Client // safe for concurrent use
	log     *zap.Logger
	timeout time.Duration
}

// NewEtcdRegistry connects to the given etcd endpoints. Connection is lazy:
// dialTimeout only bounds establishing the connection, while each Resolve is
// bounded by requestTimeout, so an unreachable cluster surfaces as a Resolve
// error instead of a hang. A zero requestTimeout falls back to dialTimeout,
// then to DefaultEtcdRequestTimeout.
func NewEtcdRegistry(endpoints []string, dialTimeout, requestTimeout time.Duration, log *zap.Logger) (*EtcdRegistry, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if requestTimeout <= 0 {
		requestTimeout = dialTimeout
	}
	if requestTimeout <= 0 {
		requestTimeout = DefaultEtcdRequestTimeout
	}
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
		Logger:      log.Named("etcd"),
	})
	if err != nil {
		return nil, fmt.Errorf("etcd client: %w", err)
	}
	return &EtcdRegistry{client: c, log: log, timeout: requestTimeout}, nil
}

func serviceKey(service string, addr address.HostPort) string {
	return etcdPrefix + service + "/" + addr.String()
}

// Register stores inst under service with a TTL lease and keeps the lease
// alive until ctx is done.
//
// The lease ID is local to the call so one registry can serve several
// registrations concurrently.
func (r *EtcdRegistry) Register(ctx context.Context, service string, inst Instance, ttl int64) error {
	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return fmt.Errorf("etcd grant: %w", err)
	}

	val, err := json.Marshal(inst)
	if err != nil {
		return err
	}

	key := serviceKey(service, inst.Addr())
	if _, err := r.client.Put(ctx, key, string(val), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("etcd put %s: %w", key, err)
	}

	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return fmt.Errorf("etcd keepalive: %w", err)
	}

	// Drain keepalive responses so the channel never fills up.
	go func() {
		for range ch {
		}
		r.log.Debug("etcd lease keepalive stopped", zap.String("key", key))
	}()

	r.log.Info("metastore registered", zap.String("service", service), zap.Stringer("address", inst.Addr()))
	return nil
}

// Deregister removes a registration immediately instead of waiting for its
// lease to expire.
func (r *EtcdRegistry) Deregister(ctx context.Context, service string, addr address.HostPort) error {
	if _, err := r.client.Delete(ctx, serviceKey(service, addr)); err != nil {
		return fmt.Errorf("etcd delete: %w", err)
	}
	return nil
}

// Resolve returns every instance registered under ref.Service. The ref's
// authority is not consulted; the registry is bound to its own endpoints.
func (r *EtcdRegistry) Resolve(ctx context.Context, ref address.Ref) ([]address.HostPort, error) {
	prefix := etcdPrefix + ref.Service + "/"

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("etcd get %s: %w", prefix, err)
	}

	addrs := make([]address.HostPort, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var inst Instance
		if err := json.Unmarshal(kv.Value, &inst); err != nil || inst.Host == "" || inst.Port == 0 {
			r.log.Warn("skipping malformed etcd registration", zap.ByteString("key", kv.Key))
			continue
		}
		addrs = append(addrs, inst.Addr())
	}
	return addrs, nil
}

func (r *EtcdRegistry) Close() error {
	return r.client.Close()
}

const defaultEtcdEndpoint = "localhost:2379"

// EtcdResolver resolves etcd:// refs against the endpoint named in each
// ref's authority, opening a short-lived client per lookup.
type EtcdResolver struct {
	DialTimeout    time.Duration
	RequestTimeout time.Duration
	Log            *zap.Logger
}

func (e *EtcdResolver) Resolve(ctx context.Context, ref address.Ref) ([]address.HostPort, error) {
	endpoint := ref.Authority
	if endpoint == "" {
		endpoint = defaultEtcdEndpoint
	}
	reg, err := NewEtcdRegistry([]string{endpoint}, e.DialTimeout, e.RequestTimeout, e.Log)
	if err != nil {
		return nil, err
	}
	defer reg.Close()
	return reg.Resolve(ctx, ref)
}
