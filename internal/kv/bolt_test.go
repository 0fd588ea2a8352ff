package kv

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	db, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenBolt_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.db")

	db, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	defer db.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected file permissions 0600, got %04o", perm)
	}
}

func TestBoltStore_CRUD(t *testing.T) {
	s := newTestDB(t).Bucket(BucketSettings)

	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Set("slot", []byte("value")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get("slot")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "value" {
		t.Errorf("expected value, got %q", got)
	}

	if err := s.Delete("slot"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("slot"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting twice is fine.
	if err := s.Delete("slot"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestBoltStore_BucketsAreIsolated(t *testing.T) {
	db := newTestDB(t)
	settings := db.Bucket(BucketSettings)
	transient := db.Bucket(BucketTransient)

	if err := settings.Set("k", []byte("durable")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := transient.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected key to be scoped to its bucket, got %v", err)
	}

	if err := transient.Set("k", []byte("short")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := transient.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, err := settings.Get("k")
	if err != nil || string(got) != "durable" {
		t.Fatalf("Clear leaked into another bucket: %q, %v", got, err)
	}
}

func TestBoltStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	db, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	if err := SetJSON(db.Bucket(BucketSettings), "obj", map[string]int{"n": 7}); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	db.Close()

	db, err = OpenBolt(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var out map[string]int
	if err := GetJSON(db.Bucket(BucketSettings), "obj", &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out["n"] != 7 {
		t.Errorf("expected 7, got %d", out["n"])
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	ok, err := Has(m, "x")
	if err != nil || ok {
		t.Fatalf("expected empty store, got %v %v", ok, err)
	}

	buf := []byte("abc")
	if err := m.Set("x", buf); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'z'

	got, _ := m.Get("x")
	if string(got) != "abc" {
		t.Errorf("store must copy values, got %q", got)
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 slot, got %d", m.Len())
	}
}
