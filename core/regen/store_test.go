package regen

import (
	"testing"
	"time"
)

func testEntry(fingerprint string) Entry {
	return Entry{
		PassID:      "pass.com.acme.card/prof-1",
		Fingerprint: fingerprint,
		Archive:     []byte("archive-bytes"),
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	store := NewMemoryStore()
	key := "pass.com.acme.card/prof-1"

	if _, ok, err := store.Get(key); err != nil || ok {
		t.Fatalf("empty store must miss (ok=%v err=%v)", ok, err)
	}
	if err := store.Put(key, testEntry("aa")); err != nil {
		t.Fatalf("put: %v", err)
	}
	entry, ok, err := store.Get(key)
	if err != nil || !ok {
		t.Fatalf("get after put (ok=%v err=%v)", ok, err)
	}
	if entry.Fingerprint != "aa" {
		t.Fatalf("unexpected fingerprint %q", entry.Fingerprint)
	}

	// A fresh put for the same key evicts the stale entry.
	if err := store.Put(key, testEntry("bb")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	entry, _, _ = store.Get(key)
	if entry.Fingerprint != "bb" {
		t.Fatalf("overwrite did not evict stale entry")
	}

	if err := store.Delete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(key); ok {
		t.Fatalf("deleted entry must miss")
	}
}

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("new disk store: %v", err)
	}
	key := "pass.com.acme.card/prof-1"
	want := testEntry("cc")

	if _, ok, err := store.Get(key); err != nil || ok {
		t.Fatalf("empty store must miss (ok=%v err=%v)", ok, err)
	}
	if err := store.Put(key, want); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := store.Get(key)
	if err != nil || !ok {
		t.Fatalf("get after put (ok=%v err=%v)", ok, err)
	}
	if got.PassID != want.PassID || got.Fingerprint != want.Fingerprint {
		t.Fatalf("entry changed through disk: %+v", got)
	}
	if string(got.Archive) != string(want.Archive) {
		t.Fatalf("archive bytes changed through disk")
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("created-at changed through disk: %v", got.CreatedAt)
	}

	if err := store.Delete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(key); ok {
		t.Fatalf("deleted entry must miss")
	}
	// Deleting an absent key is not an error.
	if err := store.Delete(key); err != nil {
		t.Fatalf("idempotent delete: %v", err)
	}
}

func TestDiskStoreKeysNeverLeakIntoPaths(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir)
	if err != nil {
		t.Fatalf("new disk store: %v", err)
	}
	// Keys carry slashes and dots from the pass identity; file names must not.
	key := "pass.com.acme.card/../../prof-1"
	if err := store.Put(key, testEntry("dd")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok, err := store.Get(key); err != nil || !ok {
		t.Fatalf("get hostile key (ok=%v err=%v)", ok, err)
	}
}
