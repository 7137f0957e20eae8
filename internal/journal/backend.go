package journal

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound reports a sequence number with no stored record.
var ErrNotFound = errors.New("journal: record not found")

// Backend is the storage layer beneath the journal: a durable map from
// sequence number to framed record bytes.
type Backend interface {
	Name() string
	Put(seq uint64, data []byte) error
	Get(seq uint64) ([]byte, error)
	// LastSeq returns the highest stored sequence number, with false
	// when the store is empty.
	LastSeq() (uint64, bool, error)
	Close() error
}

// BackendFactory creates a backend from journal configuration.
type BackendFactory func(cfg *Config) (Backend, error)

var (
	backendMu        sync.RWMutex
	backendFactories = make(map[string]BackendFactory)
)

// RegisterBackend registers a backend factory under the given name.
func RegisterBackend(name string, factory BackendFactory) {
	backendMu.Lock()
	defer backendMu.Unlock()
	backendFactories[name] = factory
}

// CreateBackend instantiates the named backend.
func CreateBackend(name string, cfg *Config) (Backend, error) {
	backendMu.RLock()
	factory, ok := backendFactories[name]
	backendMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("journal: unknown backend: %s", name)
	}
	return factory(cfg)
}

// AvailableBackends returns the registered backend names.
func AvailableBackends() []string {
	backendMu.RLock()
	defer backendMu.RUnlock()

	names := make([]string, 0, len(backendFactories))
	for name := range backendFactories {
		names = append(names, name)
	}
	return names
}

func init() {
	RegisterBackend("memory", func(*Config) (Backend, error) { return NewMemoryBackend(), nil })
	RegisterBackend("pebble", NewPebbleBackend)
	RegisterBackend("leveldb", NewLevelDBBackend)
}
