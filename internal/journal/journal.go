// Package journal persists the append-only log of redemption records
// and fans them out to subscribers.
package journal

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/yieldprotocol/principald/internal/journal/compression"
)

// Config selects the storage backend and compression for a journal.
type Config struct {
	// Backend is one of AvailableBackends(): memory, pebble, leveldb.
	Backend string
	// Path is the on-disk location for persistent backends.
	Path string
	// Compression is one of compression.Available(): none, lz4.
	Compression string
	// CacheSize is the number of recent records kept in memory.
	CacheSize int
}

// DefaultCacheSize is used when Config.CacheSize is unset.
const DefaultCacheSize = 1024

// Journal is the append-only redemption log. Sequence numbers start at
// 1 and are assigned by Append; existing records are never rewritten.
type Journal struct {
	mu      sync.Mutex
	backend Backend
	comp    compression.Compressor
	cache   *lru.Cache[uint64, Record]
	subs    []func(Record)
	next    uint64
}

// Open creates the configured backend and positions the journal after
// the last durable record.
func Open(cfg Config) (*Journal, error) {
	if cfg.Backend == "" {
		cfg.Backend = "memory"
	}
	if cfg.Compression == "" {
		cfg.Compression = "none"
	}
	comp, err := compression.Get(cfg.Compression)
	if err != nil {
		return nil, err
	}
	backend, err := CreateBackend(cfg.Backend, &cfg)
	if err != nil {
		return nil, err
	}

	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[uint64, Record](cacheSize)
	if err != nil {
		backend.Close()
		return nil, err
	}

	last, any, err := backend.LastSeq()
	if err != nil {
		backend.Close()
		return nil, err
	}
	next := uint64(1)
	if any {
		next = last + 1
	}

	return &Journal{
		backend: backend,
		comp:    comp,
		cache:   cache,
		next:    next,
	}, nil
}

// Append assigns the next sequence number, persists the record, and
// notifies subscribers. The returned record carries its sequence.
func (j *Journal) Append(rec Record) (Record, error) {
	j.mu.Lock()
	rec.Seq = j.next

	frame, err := encodeRecord(rec, j.comp)
	if err != nil {
		j.mu.Unlock()
		return Record{}, err
	}
	if err := j.backend.Put(rec.Seq, frame); err != nil {
		j.mu.Unlock()
		return Record{}, fmt.Errorf("journal: append record %d: %w", rec.Seq, err)
	}
	j.next++
	j.cache.Add(rec.Seq, rec)
	subs := make([]func(Record), len(j.subs))
	copy(subs, j.subs)
	j.mu.Unlock()

	for _, fn := range subs {
		fn(rec)
	}
	return rec, nil
}

// Get returns the record with the given sequence number.
func (j *Journal) Get(seq uint64) (Record, error) {
	j.mu.Lock()
	if rec, ok := j.cache.Get(seq); ok {
		j.mu.Unlock()
		return rec, nil
	}
	j.mu.Unlock()

	frame, err := j.backend.Get(seq)
	if err != nil {
		return Record{}, err
	}
	rec, err := decodeRecord(frame)
	if err != nil {
		return Record{}, err
	}
	j.mu.Lock()
	j.cache.Add(seq, rec)
	j.mu.Unlock()
	return rec, nil
}

// Range returns up to limit records starting at start (inclusive),
// stopping early at the journal head. A non-positive limit yields an
// empty slice.
func (j *Journal) Range(start uint64, limit int) ([]Record, error) {
	if start == 0 {
		start = 1
	}
	if limit < 0 {
		limit = 0
	}
	head := j.Len()
	records := make([]Record, 0, limit)
	for seq := start; seq <= head && len(records) < limit; seq++ {
		rec, err := j.Get(seq)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Len returns the number of records appended so far.
func (j *Journal) Len() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.next - 1
}

// Subscribe registers a callback invoked, in order, for every record
// appended after registration. The callback must not block; slow
// consumers buffer on their own side.
func (j *Journal) Subscribe(fn func(Record)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.subs = append(j.subs, fn)
}

// Close closes the underlying backend.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.backend.Close()
}
