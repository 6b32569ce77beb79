package storage

import (
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// KV is the read/write surface contract state goes through. Both the
// staged transaction and the in-memory test store implement it.
type KV interface {
	Get(key []byte) ([]byte, bool)
	Set(key, value []byte)
	Delete(key []byte)
	Has(key []byte) bool
}

// Store owns the Pebble database holding committed ledger state.
// All mutation happens through Begin/Commit; the store itself only reads.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) a Pebble database at the given path.
func Open(path string) (*Store, error) {
	opts := &pebble.Options{
		Cache:                 pebble.NewCache(64 << 20),
		MemTableSize:          32 << 20,
		L0CompactionThreshold: 2,
		MaxOpenFiles:          1000,
		BytesPerSync:          512 << 10,
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store backed by an in-memory filesystem.
// Used by tests and throwaway devnets.
func OpenInMemory() (*Store, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory pebble db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// get reads a committed value. The returned slice is a copy.
func (s *Store) get(key []byte) ([]byte, bool) {
	val, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, false
	}
	if err != nil {
		panic(fmt.Errorf("pebble get: %w", err))
	}
	defer closer.Close()
	out := make([]byte, len(val))
	copy(out, val)
	return out, true
}
