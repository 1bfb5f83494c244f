// Package dbtest opens throwaway engine databases for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/ksred/tradeplan/internal/database"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Open creates an empty engine database in a temporary directory and returns
// it together with its file path. It is closed when the test ends.
func Open(t testing.TB) (*gorm.DB, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data.db3")
	db, err := database.Open(path, database.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	return db, path
}

// Count returns the number of rows of model.
func Count(t testing.TB, db *gorm.DB, model interface{}) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
