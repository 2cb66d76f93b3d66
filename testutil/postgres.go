package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/onnwee/ytchat-tender/store"
)

// SetupTestPostgres opens a Postgres-backed store and applies the schema.
// It skips the test if TEST_PG_DSN is not set, so the suite stays runnable
// without a database; the SQLite store covers the shared query paths.
func SetupTestPostgres(t *testing.T) store.Store {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	s, err := store.Open(context.Background(), "postgres", dsn)
	if err != nil {
		t.Fatalf("failed to open postgres store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}
