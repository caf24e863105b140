package pricing

import (
	"testing"

	"budget-backend/internal/database"
	"budget-backend/internal/models"

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

func TestConvertThroughBaseRates(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.CurrencyRate{Currency: "USD", Rate: 16000}).Error)
	require.NoError(t, db.Create(&models.CurrencyRate{Currency: "IDR", Rate: 1}).Error)

	got, err := Convert(db, 2, "USD", "IDR")
	require.NoError(t, err)
	require.Equal(t, 32000.0, got)

	same, err := Convert(db, 123.45, "IDR", "IDR")
	require.NoError(t, err)
	require.Equal(t, 123.45, same)
}

func TestConvertFailsWithoutRate(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.CurrencyRate{Currency: "IDR", Rate: 1}).Error)

	_, err := Convert(db, 1, "EUR", "IDR")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no conversion rate")
}

func TestDefaultUnitPricePicksHighestConvertedOffer(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.CurrencyRate{Currency: "USD", Rate: 16000}).Error)
	require.NoError(t, db.Create(&models.CurrencyRate{Currency: "IDR", Rate: 1}).Error)

	p := models.Product{Name: "Fiber cable", UOM: "pcs", StandardPrice: 500}
	require.NoError(t, db.Create(&p).Error)
	require.NoError(t, db.Create(&models.ProductVendor{
		ProductID: p.ID, VendorName: "Local", Price: 100000, Currency: "IDR",
	}).Error)
	require.NoError(t, db.Create(&models.ProductVendor{
		ProductID: p.ID, VendorName: "Import", Price: 10, Currency: "USD",
	}).Error)

	got, err := DefaultUnitPrice(db, p.ID, "IDR")
	require.NoError(t, err)
	require.Equal(t, 160000.0, got) // 10 USD beats the local offer
}

func TestDefaultUnitPriceFallsBackToStandardPrice(t *testing.T) {
	db := newTestDB(t)
	p := models.Product{Name: "Splice tray", UOM: "pcs", StandardPrice: 750}
	require.NoError(t, db.Create(&p).Error)

	got, err := DefaultUnitPrice(db, p.ID, "IDR")
	require.NoError(t, err)
	require.Equal(t, 750.0, got)
}
