package journal

import (
	"sync"
)

// MemoryBackend is an in-memory Backend for tests and dev nodes.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[uint64][]byte
	last uint64
	any  bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[uint64][]byte)}
}

func (m *MemoryBackend) Name() string {
	return "memory"
}

func (m *MemoryBackend) Put(seq uint64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.data[seq] = stored
	if !m.any || seq > m.last {
		m.last = seq
		m.any = true
	}
	return nil
}

func (m *MemoryBackend) Get(seq uint64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[seq]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryBackend) LastSeq() (uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, m.any, nil
}

func (m *MemoryBackend) Close() error {
	return nil
}
