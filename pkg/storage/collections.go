package storage

import (
	"encoding/binary"
	"fmt"
)

// Persistent collection types contract state lives in. Both are thin
// views over a KV: constructing one is free and binds it to whatever
// staged transaction the current call runs in.
//
// List removal is swap-remove: the last element moves into the removed
// slot, so element positions are NOT stable across removals.

// keys: <name>#            list element count (8-byte big-endian)
//       <name>@<8-byte-i>  list element i
//       <name>:<key>       map entry

type List struct {
	kv   KV
	name string
}

func NewList(kv KV, name string) List {
	return List{kv: kv, name: name}
}

func (l List) countKey() []byte { return []byte(l.name + "#") }

func (l List) elemKey(i uint64) []byte {
	k := make([]byte, 0, len(l.name)+9)
	k = append(k, l.name...)
	k = append(k, '@')
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], i)
	return append(k, idx[:]...)
}

func (l List) Count() uint64 {
	b, ok := l.kv.Get(l.countKey())
	if !ok {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (l List) setCount(n uint64) {
	if n == 0 {
		l.kv.Delete(l.countKey())
		return
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	l.kv.Set(l.countKey(), b[:])
}

// Append stores v at the end of the list and returns its index.
func (l List) Append(v any) uint64 {
	n := l.Count()
	l.kv.Set(l.elemKey(n), mustEncodeGob(v))
	l.setCount(n + 1)
	return n
}

func (l List) Get(i uint64, out any) error {
	b, ok := l.kv.Get(l.elemKey(i))
	if !ok {
		return fmt.Errorf("list %s: index %d out of range", l.name, i)
	}
	return DecodeGob(b, out)
}

func (l List) Replace(i uint64, v any) error {
	if i >= l.Count() {
		return fmt.Errorf("list %s: index %d out of range", l.name, i)
	}
	l.kv.Set(l.elemKey(i), mustEncodeGob(v))
	return nil
}

// RemoveAt removes element i by moving the last element into its slot.
func (l List) RemoveAt(i uint64) error {
	n := l.Count()
	if i >= n {
		return fmt.Errorf("list %s: index %d out of range", l.name, i)
	}
	last := n - 1
	if i != last {
		b, ok := l.kv.Get(l.elemKey(last))
		if !ok {
			return fmt.Errorf("list %s: missing element %d", l.name, last)
		}
		l.kv.Set(l.elemKey(i), b)
	}
	l.kv.Delete(l.elemKey(last))
	l.setCount(last)
	return nil
}

type Map struct {
	kv   KV
	name string
}

func NewMap(kv KV, name string) Map {
	return Map{kv: kv, name: name}
}

func (m Map) entryKey(key []byte) []byte {
	k := make([]byte, 0, len(m.name)+1+len(key))
	k = append(k, m.name...)
	k = append(k, ':')
	return append(k, key...)
}

func (m Map) Get(key []byte, out any) bool {
	b, ok := m.kv.Get(m.entryKey(key))
	if !ok {
		return false
	}
	if err := DecodeGob(b, out); err != nil {
		panic(fmt.Errorf("map %s: decode: %w", m.name, err))
	}
	return true
}

func (m Map) Set(key []byte, v any) {
	m.kv.Set(m.entryKey(key), mustEncodeGob(v))
}

func (m Map) Delete(key []byte) {
	m.kv.Delete(m.entryKey(key))
}

func (m Map) Has(key []byte) bool {
	return m.kv.Has(m.entryKey(key))
}
