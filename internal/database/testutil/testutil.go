package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rudderhq/rudder/internal/database"
)

// MustOpenTestDB opens an in-memory SQLite database with migrations applied.
// The returned connection is automatically closed via t.Cleanup.
func MustOpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Each test gets its own shared-cache memory database so rows do not
	// leak between packages running in parallel.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := database.Open(database.Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
