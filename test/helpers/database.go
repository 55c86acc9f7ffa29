package helpers

import (
	"testing"

	"gorm.io/gorm"

	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/database"
)

// NewTestDB opens a migrated in-memory snapshot store that closes with t
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewTestConnection()
	if err != nil {
		t.Fatalf("failed to open test snapshot store: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	return db
}
