package registry

import (
	"context"
	"sync"

	"metastore-cluster/address"
)

// Memory is an in-process directory keyed by service name. The ref's scheme
// and authority are ignored.
type Memory struct {
	mu        sync.RWMutex
	instances map[string][]Instance
}

func NewMemory() *Memory {
	return &Memory{instances: make(map[string][]Instance)}
}

func (m *Memory) Register(service string, inst Instance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instances[service] = append(m.instances[service], inst)
}

func (m *Memory) Deregister(service string, addr address.HostPort) {
	m.mu.Lock()
	defer m.mu.Unlock()
	insts := m.instances[service]
	for i, inst := range insts {
		if inst.Addr() == addr {
			m.instances[service] = append(insts[:i:i], insts[i+1:]...)
			return
		}
	}
}

func (m *Memory) Resolve(_ context.Context, ref address.Ref) ([]address.HostPort, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	insts := m.instances[ref.Service]
	addrs := make([]address.HostPort, 0, len(insts))
	for _, inst := range insts {
		addrs = append(addrs, inst.Addr())
	}
	return addrs, nil
}
