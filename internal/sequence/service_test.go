package sequence

import (
	"testing"

	"budget-backend/internal/database"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestNextIsMonotonicPerCode(t *testing.T) {
	db := newTestDB(t)

	first, err := Next(db, CodeBudget)
	require.NoError(t, err)
	require.Equal(t, "0001", first)

	second, err := Next(db, CodeBudget)
	require.NoError(t, err)
	require.Equal(t, "0002", second)

	// Codes count independently.
	other, err := Next(db, CodeMemo)
	require.NoError(t, err)
	require.Equal(t, "0001", other)
}
