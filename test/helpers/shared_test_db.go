package helpers

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/andrescamacho/pharmasim-go/internal/adapters/persistence"
	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/database"
)

// SharedTestDB is the singleton database instance used across all BDD scenarios
var SharedTestDB *gorm.DB

// InitializeSharedTestDB creates and migrates the shared test database.
// Called once in TestMain before running any scenario.
func InitializeSharedTestDB() error {
	db, err := database.NewTestConnection()
	if err != nil {
		return fmt.Errorf("failed to open shared test database: %w", err)
	}
	SharedTestDB = db
	return nil
}

// TruncateAllTables clears every simulation table between scenarios
func TruncateAllTables() error {
	if SharedTestDB == nil {
		return fmt.Errorf("shared test database not initialized")
	}

	// children before parents
	for _, model := range []interface{}{
		&persistence.TaskModel{},
		&persistence.WorkerModel{},
		&persistence.SimulationLogModel{},
		&persistence.SimulationStateModel{},
	} {
		if err := SharedTestDB.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("failed to truncate: %w", err)
		}
	}
	return nil
}

// CloseSharedTestDB closes the shared database connection.
// Called in TestMain after all scenarios complete.
func CloseSharedTestDB() error {
	if SharedTestDB == nil {
		return nil
	}
	err := database.Close(SharedTestDB)
	SharedTestDB = nil
	return err
}
