package storage

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/pebble"
)

// Tx stages every write made during one ledger call. Reads see staged
// state first, then the committed store. Commit applies the whole
// overlay atomically through a Pebble batch; Discard drops it, leaving
// committed state untouched. This is what gives each call into the
// exchange its all-or-nothing semantics.
type Tx struct {
	store  *Store
	writes map[string][]byte
	dels   map[string]struct{}
}

// Begin starts a staged transaction over the store.
func (s *Store) Begin() *Tx {
	return &Tx{
		store:  s,
		writes: make(map[string][]byte),
		dels:   make(map[string]struct{}),
	}
}

func (tx *Tx) Get(key []byte) ([]byte, bool) {
	k := string(key)
	if v, ok := tx.writes[k]; ok {
		out := make([]byte, len(v))
		copy(out, v)
		return out, true
	}
	if _, ok := tx.dels[k]; ok {
		return nil, false
	}
	return tx.store.get(key)
}

func (tx *Tx) Set(key, value []byte) {
	k := string(key)
	v := make([]byte, len(value))
	copy(v, value)
	delete(tx.dels, k)
	tx.writes[k] = v
}

func (tx *Tx) Delete(key []byte) {
	k := string(key)
	delete(tx.writes, k)
	tx.dels[k] = struct{}{}
}

func (tx *Tx) Has(key []byte) bool {
	_, ok := tx.Get(key)
	return ok
}

// Commit applies the staged overlay to the store atomically.
// Keys are applied in sorted order so the resulting batch is identical
// on every replaying node.
func (tx *Tx) Commit() error {
	keys := make([]string, 0, len(tx.writes)+len(tx.dels))
	for k := range tx.writes {
		keys = append(keys, k)
	}
	for k := range tx.dels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	batch := tx.store.db.NewBatch()
	defer batch.Close()
	for _, k := range keys {
		if v, ok := tx.writes[k]; ok {
			if err := batch.Set([]byte(k), v, nil); err != nil {
				return fmt.Errorf("batch set: %w", err)
			}
		} else {
			if err := batch.Delete([]byte(k), nil); err != nil {
				return fmt.Errorf("batch delete: %w", err)
			}
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("batch commit: %w", err)
	}
	tx.writes = nil
	tx.dels = nil
	return nil
}

// Discard drops the staged overlay without touching committed state.
func (tx *Tx) Discard() {
	tx.writes = nil
	tx.dels = nil
}

var _ KV = (*Tx)(nil)

// MemKV is a bare in-memory KV with no commit semantics.
// Handy for unit tests of code that only needs the KV contract.
type MemKV struct {
	m map[string][]byte
}

func NewMemKV() *MemKV {
	return &MemKV{m: make(map[string][]byte)}
}

func (kv *MemKV) Get(key []byte) ([]byte, bool) {
	v, ok := kv.m[string(key)]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

func (kv *MemKV) Set(key, value []byte) {
	v := make([]byte, len(value))
	copy(v, value)
	kv.m[string(key)] = v
}

func (kv *MemKV) Delete(key []byte) { delete(kv.m, string(key)) }

func (kv *MemKV) Has(key []byte) bool {
	_, ok := kv.m[string(key)]
	return ok
}

var _ KV = (*MemKV)(nil)
