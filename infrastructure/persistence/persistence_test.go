package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kodit-ai/kodit/internal/database"
)

func testDB(t *testing.T) database.Database {
	t.Helper()
	return openTestDB(t, ":memory:")
}

// testFileDB backs the database with a file so every pool connection sees
// the same data. Tests that dequeue from several goroutines need this; an
// in-memory sqlite database is private to its connection.
func testFileDB(t *testing.T) database.Database {
	t.Helper()
	return openTestDB(t, filepath.Join(t.TempDir(), "test.db")+"?_busy_timeout=5000")
}

func openTestDB(t *testing.T, dsn string) database.Database {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	db := database.FromGorm(gormDB)
	require.NoError(t, Migrate(context.Background(), db))
	return db
}
