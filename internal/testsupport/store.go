package testsupport

import (
	"testing"

	"splicer/internal/config"
	"splicer/internal/snapshots"
)

// MustOpenStore opens a snapshots.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *snapshots.Store {
	t.Helper()

	store, err := snapshots.Open(cfg)
	if err != nil {
		t.Fatalf("snapshots.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
