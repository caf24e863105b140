package purchase

import (
	"testing"
	"time"

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

type fixture struct {
	budget  *models.Budget
	leaf    *models.BudgetItem
	product *models.Product
	line    *models.BudgetLine
}

// seedFixture plans 10 units at 100 on one leaf item and leaves the derived
// fields consistent (qty_remain = 10, subtotal = 1000).
func seedFixture(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	b := models.Budget{
		BudgetNumber: "0001/RAB-FO/ISAT-02/ENGR-PD/VII/FSI/2025",
		Date:         time.Now(), BudgetType: "project",
		StartPeriod: time.Now(), EndPeriod: time.Now().AddDate(1, 0, 0),
		Currency: "IDR",
	}
	require.NoError(t, db.Create(&b).Error)

	leaf := models.BudgetItem{BudgetID: b.ID, Code: "0001/RAB-FO-0100", Name: "Cabling", Type: "material"}
	require.NoError(t, db.Create(&leaf).Error)

	p := models.Product{Name: "Fiber cable", UOM: "pcs"}
	require.NoError(t, db.Create(&p).Error)

	bl := models.BudgetLine{
		ItemID: leaf.ID, ProductID: p.ID,
		QtyPlan: 10, InitialQtyPlan: 10, UnitPrice: 100, InitialUnitPrice: 100,
		QtyRemain: 10, Subtotal: 1000,
	}
	require.NoError(t, db.Create(&bl).Error)

	return fixture{budget: &b, leaf: &leaf, product: &p, line: &bl}
}

func seedOrder(t *testing.T, db *gorm.DB, number string, state models.PurchaseState) *models.PurchaseOrder {
	t.Helper()
	o := models.PurchaseOrder{Number: number, Date: time.Now(), State: state}
	require.NoError(t, db.Create(&o).Error)
	return &o
}

func TestClassifyBoundaryIsExclusive(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixture(t, db)

	cases := []struct {
		name     string
		qty, prc float64
		expect   models.BreachType
	}{
		{"exactly at remaining and max price", 10, 100, models.BreachNone},
		{"qty one over", 11, 100, models.BreachQuantity},
		{"price one over", 10, 101, models.BreachPrice},
		{"both over", 11, 101, models.BreachBoth},
		{"well within", 1, 1, models.BreachNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			line := models.PurchaseOrderLine{
				ProductID: fx.product.ID, BudgetItemID: &fx.leaf.ID,
				Qty: tc.qty, UnitPrice: tc.prc,
			}
			got, err := Classify(db, &line)
			require.NoError(t, err)
			require.Equal(t, tc.expect, got)
		})
	}
}

func TestClassifyQuantityUsesTotalRemainingAcrossLines(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixture(t, db)

	// Second plan line for the same pair: remaining becomes 10 + 5.
	require.NoError(t, db.Create(&models.BudgetLine{
		ItemID: fx.leaf.ID, ProductID: fx.product.ID,
		QtyPlan: 5, InitialQtyPlan: 5, UnitPrice: 80, InitialUnitPrice: 80,
		QtyRemain: 5, Subtotal: 400,
	}).Error)

	line := models.PurchaseOrderLine{
		ProductID: fx.product.ID, BudgetItemID: &fx.leaf.ID,
		Qty: 15, UnitPrice: 100,
	}
	got, err := Classify(db, &line)
	require.NoError(t, err)
	require.Equal(t, models.BreachNone, got)

	line.Qty = 16
	got, err = Classify(db, &line)
	require.NoError(t, err)
	require.Equal(t, models.BreachQuantity, got)
}

func TestClassifyWithoutBudgetReferenceIsNone(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixture(t, db)

	line := models.PurchaseOrderLine{ProductID: fx.product.ID, Qty: 9999, UnitPrice: 9999}
	got, err := Classify(db, &line)
	require.NoError(t, err)
	require.Equal(t, models.BreachNone, got)
}

func TestValidateProductBudgetedRejectsUnplannedProduct(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixture(t, db)

	other := models.Product{Name: "Splice tray", UOM: "pcs"}
	require.NoError(t, db.Create(&other).Error)

	line := models.PurchaseOrderLine{ProductID: other.ID, BudgetItemID: &fx.leaf.ID, Qty: 1, UnitPrice: 1}
	err := ValidateProductBudgeted(db, &line)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not available on budget item")

	line.ProductID = fx.product.ID
	require.NoError(t, ValidateProductBudgeted(db, &line))
}

func TestBudgetSnapshotAggregatesPairLines(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixture(t, db)
	require.NoError(t, db.Create(&models.BudgetLine{
		ItemID: fx.leaf.ID, ProductID: fx.product.ID,
		QtyPlan: 5, InitialQtyPlan: 5, UnitPrice: 120, InitialUnitPrice: 120,
		QtyRemain: 3, Subtotal: 600,
	}).Error)

	qty, price, amount, err := BudgetSnapshot(db, fx.leaf.ID, fx.product.ID)
	require.NoError(t, err)
	require.Equal(t, 13.0, qty)
	require.Equal(t, 120.0, price)
	require.Equal(t, 1600.0, amount)
}
