package journal

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
)

// LevelDBBackend is the goleveldb alternative to the pebble backend,
// with the same big-endian sequence keying.
type LevelDBBackend struct {
	db *leveldb.DB
}

func NewLevelDBBackend(cfg *Config) (Backend, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, errors.New("journal: leveldb backend requires a path")
	}
	db, err := leveldb.OpenFile(cfg.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("journal: open leveldb at %s: %w", cfg.Path, err)
	}
	return &LevelDBBackend{db: db}, nil
}

func (l *LevelDBBackend) Name() string {
	return "leveldb"
}

func (l *LevelDBBackend) Put(seq uint64, data []byte) error {
	return l.db.Put(seqKey(seq), data, nil)
}

func (l *LevelDBBackend) Get(seq uint64) ([]byte, error) {
	data, err := l.db.Get(seqKey(seq), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (l *LevelDBBackend) LastSeq() (uint64, bool, error) {
	iter := l.db.NewIterator(nil, nil)
	defer iter.Release()

	if !iter.Last() {
		return 0, false, iter.Error()
	}
	key := iter.Key()
	if len(key) != 8 {
		return 0, false, fmt.Errorf("journal: malformed leveldb key of length %d", len(key))
	}
	return binary.BigEndian.Uint64(key), true, iter.Error()
}

func (l *LevelDBBackend) Close() error {
	return l.db.Close()
}
