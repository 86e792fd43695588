// Package dbtest provides watch stores for tests.
package dbtest

import (
	"context"
	"testing"

	"airease-backend/pkg/database"
)

// NewTestStore creates an in-memory SQLite store with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *database.SQLStore {
	t.Helper()

	s, err := database.OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}
