package helpers

import (
	"testing"

	"github.com/euskoog/openai-assistants-link/internal/repository"
)

// NewTestStore returns an in-memory SQLite store closed on test cleanup.
func NewTestStore(t *testing.T) *repository.SQLStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}
