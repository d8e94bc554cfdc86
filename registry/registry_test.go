package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metastore-cluster/address"
)

func TestMemoryRegisterAndResolve(t *testing.T) {
	m := NewMemory()
	m.Register("hive-metastore", Instance{Host: "127.0.0.1", Port: 9083})
	m.Register("hive-metastore", Instance{Host: "127.0.0.1", Port: 9084})

	ref := address.Ref{Scheme: "memory", Service: "hive-metastore"}
	addrs, err := m.Resolve(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, []address.HostPort{{Host: "127.0.0.1", Port: 9083}, {Host: "127.0.0.1", Port: 9084}}, addrs)

	m.Deregister("hive-metastore", address.HostPort{Host: "127.0.0.1", Port: 9083})
	addrs, err = m.Resolve(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, []address.HostPort{{Host: "127.0.0.1", Port: 9084}}, addrs)

	addrs, err = m.Resolve(context.Background(), address.Ref{Service: "unknown"})
	require.NoError(t, err)
	assert.Empty(t, addrs)
}

func TestSchemesDispatch(t *testing.T) {
	m := NewMemory()
	m.Register("svc", Instance{Host: "h", Port: 1})

	var seen address.Ref
	s := Schemes{
		address.SchemeEtcd: m,
		address.SchemeConsul: ResolverFunc(func(_ context.Context, ref address.Ref) ([]address.HostPort, error) {
			seen = ref
			return nil, nil
		}),
	}

	addrs, err := s.Resolve(context.Background(), address.Ref{Scheme: address.SchemeEtcd, Service: "svc"})
	require.NoError(t, err)
	assert.Equal(t, []address.HostPort{{Host: "h", Port: 1}}, addrs)

	ref := address.Ref{Scheme: address.SchemeConsul, Authority: "agent:8500", Service: "svc"}
	_, err = s.Resolve(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, ref, seen)

	_, err = s.Resolve(context.Background(), address.Ref{Scheme: "zk", Service: "svc"})
	assert.ErrorIs(t, err, ErrUnknownScheme)
}
