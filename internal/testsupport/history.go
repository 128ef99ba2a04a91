package testsupport

import (
	"testing"

	"vidscribe/internal/config"
	"vidscribe/internal/history"
)

// MustOpenStore opens the run ledger for cfg and closes it when the test ends.
func MustOpenStore(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
