package storage

import (
	"bytes"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTxCommitPersists(t *testing.T) {
	s := openTestStore(t)

	tx := s.Begin()
	tx.Set([]byte("k1"), []byte("v1"))
	tx.Set([]byte("k2"), []byte("v2"))
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx2 := s.Begin()
	v, ok := tx2.Get([]byte("k1"))
	if !ok || !bytes.Equal(v, []byte("v1")) {
		t.Fatalf("k1 = %q, %v", v, ok)
	}
	tx2.Discard()
}

func TestTxDiscardLeavesStateUntouched(t *testing.T) {
	s := openTestStore(t)

	tx := s.Begin()
	tx.Set([]byte("base"), []byte("committed"))
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx = s.Begin()
	tx.Set([]byte("base"), []byte("overwritten"))
	tx.Set([]byte("new"), []byte("staged"))
	tx.Delete([]byte("base"))
	tx.Discard()

	tx = s.Begin()
	defer tx.Discard()
	v, ok := tx.Get([]byte("base"))
	if !ok || !bytes.Equal(v, []byte("committed")) {
		t.Fatalf("base = %q, %v after discard", v, ok)
	}
	if tx.Has([]byte("new")) {
		t.Fatal("discarded write leaked")
	}
}

func TestTxReadsSeeOwnWrites(t *testing.T) {
	s := openTestStore(t)

	tx := s.Begin()
	defer tx.Discard()

	tx.Set([]byte("k"), []byte("a"))
	if v, _ := tx.Get([]byte("k")); !bytes.Equal(v, []byte("a")) {
		t.Fatalf("staged read = %q", v)
	}

	tx.Delete([]byte("k"))
	if tx.Has([]byte("k")) {
		t.Fatal("staged delete not visible to reads")
	}

	// A re-set after delete resurrects the key.
	tx.Set([]byte("k"), []byte("b"))
	if v, _ := tx.Get([]byte("k")); !bytes.Equal(v, []byte("b")) {
		t.Fatalf("staged read = %q", v)
	}
}

func TestTxDeleteCommitted(t *testing.T) {
	s := openTestStore(t)

	tx := s.Begin()
	tx.Set([]byte("gone"), []byte("x"))
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx = s.Begin()
	tx.Delete([]byte("gone"))
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx = s.Begin()
	defer tx.Discard()
	if tx.Has([]byte("gone")) {
		t.Fatal("deleted key still present after commit")
	}
}
