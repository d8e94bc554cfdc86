package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metastore-cluster/address"
	"metastore-cluster/cluster"
	"metastore-cluster/config"
	"metastore-cluster/registry"
	"metastore-cluster/transport"
)

// metastore is a TCP listener that accepts and drops connections.
func metastore(t *testing.T) address.HostPort {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	return address.HostPort{Host: "127.0.0.1", Port: ln.Addr().(*net.TCPAddr).Port}
}

// deadPort returns an address nothing listens on.
func deadPort(t *testing.T) address.HostPort {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return address.HostPort{Host: "127.0.0.1", Port: port}
}

// consulAgent serves one service's health entries.
func consulAgent(t *testing.T, service string, addrs ...address.HostPort) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entries := []map[string]any{}
		if r.URL.Path == "/v1/health/service/"+service {
			for i, a := range addrs {
				entries = append(entries, map[string]any{
					"Node":    map[string]any{"Address": a.Host},
					"Service": map[string]any{"ID": fmt.Sprintf("%s-%d", service, i), "Port": a.Port},
				})
			}
		}
		w.Header().Set("X-Consul-Index", "1")
		w.Header().Set("X-Consul-KnownLeader", "true")
		w.Header().Set("X-Consul-LastContact", "0")
		_ = json.NewEncoder(w).Encode(entries)
	}))
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestConsulPrimaryWithStaticFallback(t *testing.T) {
	live := metastore(t)
	agent := consulAgent(t, "hive-metastore", live)

	cfg := &config.Config{
		URIs:           fmt.Sprintf("consul://%s/hive-metastore,thrift://%s", agent, deadPort(t)),
		ConnectTimeout: time.Second,
		LogLevel:       "info",
	}
	c, err := New(cfg, nil)
	require.NoError(t, err)
	defer c.Close()

	for i := 0; i < 3; i++ {
		mc, err := c.AcquireClient(context.Background())
		require.NoError(t, err)
		assert.Equal(t, live, mc.Addr())
		mc.Close()
	}
}

func TestUnreachableEtcdPrimaryFallsBackToStatic(t *testing.T) {
	live := metastore(t)
	dead := deadPort(t)

	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{
			name: "configured endpoints",
			cfg: &config.Config{
				URIs: "etcd:///meta,thrift://" + live.String(),
				Etcd: config.EtcdConfig{Endpoints: []string{dead.String()}, DialTimeout: 100 * time.Millisecond, RequestTimeout: 200 * time.Millisecond},
			},
		},
		{
			name: "uri authority",
			cfg: &config.Config{
				URIs: fmt.Sprintf("etcd://%s/meta,thrift://%s", dead, live),
				Etcd: config.EtcdConfig{DialTimeout: 100 * time.Millisecond, RequestTimeout: 200 * time.Millisecond},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.ConnectTimeout = time.Second
			c, err := New(tt.cfg, nil)
			require.NoError(t, err)
			defer c.Close()

			start := time.Now()
			mc, err := c.AcquireClient(context.Background())
			require.NoError(t, err)
			defer mc.Close()
			assert.Equal(t, live, mc.Addr())
			assert.Less(t, time.Since(start), 5*time.Second)
		})
	}
}

func TestStaticFallbackAfterDeadPrimary(t *testing.T) {
	live := metastore(t)
	cfg := &config.Config{
		URIs:           fmt.Sprintf("thrift://%s,thrift://%s,thrift://%s", deadPort(t), deadPort(t), live),
		ConnectTimeout: time.Second,
	}
	c, err := New(cfg, nil)
	require.NoError(t, err)
	defer c.Close()

	mc, err := c.AcquireClient(context.Background())
	require.NoError(t, err)
	defer mc.Close()
	assert.Equal(t, live, mc.Addr())
}

func TestAllDeadIsConnectionError(t *testing.T) {
	a, b := deadPort(t), deadPort(t)
	cfg := &config.Config{URIs: fmt.Sprintf("thrift://%s,thrift://%s", a, b), ConnectTimeout: time.Second}
	c, err := New(cfg, nil)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.AcquireClient(context.Background())
	require.ErrorIs(t, err, cluster.ErrConnection)
	assert.Equal(t, fmt.Sprintf("Failed connecting to Hive metastore using any of the URI's: [thrift://%s, thrift://%s]", a, b), err.Error())
}

func TestEmptyConsulIsResolutionError(t *testing.T) {
	agent := consulAgent(t, "hive-metastore")
	uri := fmt.Sprintf("consul://%s/hive-metastore", agent)
	c, err := New(&config.Config{URIs: uri}, nil)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.AcquireClient(context.Background())
	require.ErrorIs(t, err, cluster.ErrResolution)
	assert.Equal(t, "Failed to resolve Hive metastore addresses: ["+uri+"]", err.Error())
}

func TestCustomFactoryAndResolver(t *testing.T) {
	m := registry.NewMemory()
	m.Register("meta", registry.Instance{Host: "slow", Port: 1})
	m.Register("meta", registry.Instance{Host: "fast", Port: 2})

	f := transport.FactoryFunc(func(ctx context.Context, addr address.HostPort) (transport.Client, error) {
		if addr.Host == "slow" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &transport.Conn{}, nil
	})

	cfg := &config.Config{URIs: "etcd:///meta", ConnectTimeout: 50 * time.Millisecond}
	c, err := New(cfg, nil, WithFactory(f), WithResolver(address.SchemeEtcd, m))
	require.NoError(t, err)
	defer c.Close()

	mc, err := c.AcquireClient(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, mc)
}

func TestConnectRateLimit(t *testing.T) {
	live := metastore(t)
	cfg := &config.Config{URIs: "thrift://" + live.String(), ConnectTimeout: time.Second, ConnectRate: 0.001, ConnectBurst: 1}
	c, err := New(cfg, nil)
	require.NoError(t, err)
	defer c.Close()

	mc, err := c.AcquireClient(context.Background())
	require.NoError(t, err)
	mc.Close()

	_, err = c.AcquireClient(context.Background())
	assert.ErrorIs(t, err, cluster.ErrConnection)
}

func TestNewRejectsBadURIs(t *testing.T) {
	_, err := New(&config.Config{URIs: "zk://a/b"}, nil)
	assert.ErrorIs(t, err, address.ErrInvalidURI)
}
