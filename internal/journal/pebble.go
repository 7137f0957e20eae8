package journal

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// PebbleBackend stores framed records in a PebbleDB keyed by big-endian
// sequence number, so iteration order is sequence order.
type PebbleBackend struct {
	db *pebble.DB
}

func NewPebbleBackend(cfg *Config) (Backend, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, errors.New("journal: pebble backend requires a path")
	}
	db, err := pebble.Open(cfg.Path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("journal: open pebble at %s: %w", cfg.Path, err)
	}
	return &PebbleBackend{db: db}, nil
}

func (p *PebbleBackend) Name() string {
	return "pebble"
}

func seqKey(seq uint64) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], seq)
	return key[:]
}

func (p *PebbleBackend) Put(seq uint64, data []byte) error {
	return p.db.Set(seqKey(seq), data, pebble.Sync)
}

func (p *PebbleBackend) Get(seq uint64) ([]byte, error) {
	value, closer, err := p.db.Get(seqKey(seq))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (p *PebbleBackend) LastSeq() (uint64, bool, error) {
	iter, err := p.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, false, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, false, nil
	}
	key := iter.Key()
	if len(key) != 8 {
		return 0, false, fmt.Errorf("journal: malformed pebble key of length %d", len(key))
	}
	return binary.BigEndian.Uint64(key), true, nil
}

func (p *PebbleBackend) Close() error {
	return p.db.Close()
}
