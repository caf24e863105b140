package budget

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

func seedBudget(t *testing.T, db *gorm.DB) *models.Budget {
	t.Helper()
	b := models.Budget{
		BudgetNumber: "0001/RAB-FO/ISAT-02/ENGR-PD/VII/FSI/2025",
		Date:         time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		BudgetType:   "project",
		StartPeriod:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndPeriod:    time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		Currency:     "IDR",
	}
	require.NoError(t, db.Create(&b).Error)
	return &b
}

func seedProduct(t *testing.T, db *gorm.DB, name string) *models.Product {
	t.Helper()
	p := models.Product{Name: name, UOM: "pcs"}
	require.NoError(t, db.Create(&p).Error)
	return &p
}

func TestRecomputeChainRollsUpLeafAndAncestors(t *testing.T) {
	db := newTestDB(t)
	b := seedBudget(t, db)
	cable := seedProduct(t, db, "Fiber cable")
	conn := seedProduct(t, db, "Connector")

	parent := models.BudgetItem{BudgetID: b.ID, Code: "0001/RAB-FO-0100", Name: "Material", Type: "material"}
	require.NoError(t, db.Create(&parent).Error)
	leaf := models.BudgetItem{BudgetID: b.ID, ParentID: &parent.ID, Code: "0001/RAB-FO-0101", Name: "Cabling", Type: "material"}
	require.NoError(t, db.Create(&leaf).Error)

	require.NoError(t, db.Create(&models.BudgetLine{
		ItemID: leaf.ID, ProductID: cable.ID,
		QtyPlan: 100, InitialQtyPlan: 100, UnitPrice: 50, InitialUnitPrice: 50,
	}).Error)
	require.NoError(t, db.Create(&models.BudgetLine{
		ItemID: leaf.ID, ProductID: conn.ID,
		QtyPlan: 20, InitialQtyPlan: 20, UnitPrice: 10, InitialUnitPrice: 10,
	}).Error)

	order := models.PurchaseOrder{Number: "PO/0001/2025", Date: time.Now(), State: models.PurchaseConfirmed}
	require.NoError(t, db.Create(&order).Error)
	require.NoError(t, db.Create(&models.PurchaseOrderLine{
		OrderID: order.ID, ProductID: cable.ID, BudgetItemID: &leaf.ID,
		Qty: 30, UnitPrice: 40, Subtotal: 1200,
	}).Error)

	draft := models.PurchaseOrder{Number: "PO/0002/2025", Date: time.Now(), State: models.PurchaseDraft}
	require.NoError(t, db.Create(&draft).Error)
	require.NoError(t, db.Create(&models.PurchaseOrderLine{
		OrderID: draft.ID, ProductID: cable.ID, BudgetItemID: &leaf.ID,
		Qty: 999, UnitPrice: 999, Subtotal: 999 * 999,
	}).Error)

	require.NoError(t, RecomputeChain(db, leaf.ID))

	var got models.BudgetItem
	require.NoError(t, db.First(&got, leaf.ID).Error)
	require.Equal(t, 5200.0, got.BudgetPlan) // 100*50 + 20*10
	require.Equal(t, 1200.0, got.Request)    // draft order does not count
	require.Equal(t, 4000.0, got.Remaining)
	require.Equal(t, 0.0, got.Actual) // no paid invoice yet
	require.Equal(t, 0.0, got.OverBudget)

	var line models.BudgetLine
	require.NoError(t, db.Where("item_id = ? AND product_id = ?", leaf.ID, cable.ID).First(&line).Error)
	require.Equal(t, 30.0, line.QtyUsed)
	require.Equal(t, 70.0, line.QtyRemain)
	require.Equal(t, 5000.0, line.Subtotal)

	var gotParent models.BudgetItem
	require.NoError(t, db.First(&gotParent, parent.ID).Error)
	require.Equal(t, got.BudgetPlan, gotParent.BudgetPlan)
	require.Equal(t, got.Request, gotParent.Request)
	require.Equal(t, got.Remaining, gotParent.Remaining)
}

func TestRecomputeLeafCountsActualOnPaidInvoice(t *testing.T) {
	db := newTestDB(t)
	b := seedBudget(t, db)
	cable := seedProduct(t, db, "Fiber cable")

	leaf := models.BudgetItem{BudgetID: b.ID, Code: "0001/RAB-FO-0100", Name: "Cabling", Type: "material"}
	require.NoError(t, db.Create(&leaf).Error)
	require.NoError(t, db.Create(&models.BudgetLine{
		ItemID: leaf.ID, ProductID: cable.ID,
		QtyPlan: 10, InitialQtyPlan: 10, UnitPrice: 100, InitialUnitPrice: 100,
	}).Error)

	order := models.PurchaseOrder{Number: "PO/0001/2025", Date: time.Now(), State: models.PurchaseDone}
	require.NoError(t, db.Create(&order).Error)
	require.NoError(t, db.Create(&models.PurchaseOrderLine{
		OrderID: order.ID, ProductID: cable.ID, BudgetItemID: &leaf.ID,
		Qty: 12, UnitPrice: 100, Subtotal: 1200,
	}).Error)
	require.NoError(t, db.Create(&models.Invoice{
		OrderID: order.ID, Number: "INV/0001/2025", Amount: 1200, PaymentState: models.PaymentPaid,
	}).Error)

	require.NoError(t, RecomputeChain(db, leaf.ID))

	var got models.BudgetItem
	require.NoError(t, db.First(&got, leaf.ID).Error)
	require.Equal(t, 1000.0, got.BudgetPlan)
	require.Equal(t, 1200.0, got.Actual)
	require.Equal(t, 200.0, got.OverBudget)
}

func TestRecomputeItemRejectsMixedNode(t *testing.T) {
	db := newTestDB(t)
	b := seedBudget(t, db)
	p := seedProduct(t, db, "Connector")

	parent := models.BudgetItem{BudgetID: b.ID, Code: "0001/RAB-FO-0100", Name: "Material", Type: "material"}
	require.NoError(t, db.Create(&parent).Error)
	child := models.BudgetItem{BudgetID: b.ID, ParentID: &parent.ID, Code: "0001/RAB-FO-0101", Name: "Cabling", Type: "material"}
	require.NoError(t, db.Create(&child).Error)
	require.NoError(t, db.Create(&models.BudgetLine{
		ItemID: parent.ID, ProductID: p.ID,
		QtyPlan: 1, InitialQtyPlan: 1, UnitPrice: 1, InitialUnitPrice: 1,
	}).Error)

	_, err := RecomputeItem(db, parent.ID)
	require.Error(t, err)
}

func TestRecomputeBudgetIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	b := seedBudget(t, db)
	p := seedProduct(t, db, "Connector")

	parent := models.BudgetItem{BudgetID: b.ID, Code: "0001/RAB-FO-0100", Name: "Material", Type: "material"}
	require.NoError(t, db.Create(&parent).Error)
	leaf := models.BudgetItem{BudgetID: b.ID, ParentID: &parent.ID, Code: "0001/RAB-FO-0101", Name: "Cabling", Type: "material"}
	require.NoError(t, db.Create(&leaf).Error)
	require.NoError(t, db.Create(&models.BudgetLine{
		ItemID: leaf.ID, ProductID: p.ID,
		QtyPlan: 5, InitialQtyPlan: 5, UnitPrice: 200, InitialUnitPrice: 200,
	}).Error)

	require.NoError(t, RecomputeBudget(db, b.ID))
	var first models.BudgetItem
	require.NoError(t, db.First(&first, parent.ID).Error)

	require.NoError(t, RecomputeBudget(db, b.ID))
	var second models.BudgetItem
	require.NoError(t, db.First(&second, parent.ID).Error)

	require.Equal(t, first.BudgetPlan, second.BudgetPlan)
	require.Equal(t, first.Request, second.Request)
	require.Equal(t, first.Remaining, second.Remaining)
	require.Equal(t, 1000.0, second.BudgetPlan)
}
