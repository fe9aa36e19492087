package testsupport

import (
	"testing"

	"github.com/cockroachdb/pebble"

	"photokeep/internal/config"
	"photokeep/internal/store"
)

// MustOpenStore opens a store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// CorruptPhotoRecord overwrites the stored bytes for id with data that no
// longer decodes as a photo record, then reopens the database. Callers must
// switch to the returned store; the one passed in is closed.
func CorruptPhotoRecord(t testing.TB, st *store.Store, id string) *store.Store {
	t.Helper()

	path := st.Path()
	if err := st.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		t.Fatalf("open pebble db: %v", err)
	}
	// Same key layout the store uses for photo records.
	if err := db.Set([]byte("photo:"+id), []byte("{not-json"), pebble.Sync); err != nil {
		t.Fatalf("overwrite record: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close pebble db: %v", err)
	}

	st, err = store.OpenPath(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}
