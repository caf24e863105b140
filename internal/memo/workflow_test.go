package memo

import (
	"testing"
	"time"

	"budget-backend/internal/database"
	"budget-backend/internal/models"
	"budget-backend/internal/purchase"

	"github.com/gofiber/fiber/v2"
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
	leaf    *models.BudgetItem
	product *models.Product
	line    *models.BudgetLine
	order   *models.PurchaseOrder
	poLine  *models.PurchaseOrderLine
}

// seedBreachingOrder plans 10 units at 100 and raises a draft order asking for
// 50 units at 120, a quantity and price breach.
func seedBreachingOrder(t *testing.T, db *gorm.DB) fixture {
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

	order := models.PurchaseOrder{Number: "PO/0001/2025", Date: time.Now(), State: models.PurchaseDraft}
	require.NoError(t, db.Create(&order).Error)
	poLine := models.PurchaseOrderLine{
		OrderID: order.ID, ProductID: p.ID, BudgetItemID: &leaf.ID,
		Qty: 50, UnitPrice: 120, Subtotal: 6000,
	}
	require.NoError(t, db.Create(&poLine).Error)

	return fixture{leaf: &leaf, product: &p, line: &bl, order: &order, poLine: &poLine}
}

func TestRequestMemoSnapshotsBreachingLines(t *testing.T) {
	db := newTestDB(t)
	fx := seedBreachingOrder(t, db)

	m, err := RequestMemo(db, fx.order.ID, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "MOB/0001/2025", m.Number)
	require.False(t, m.Confirmed)
	require.Len(t, m.Lines, 1)

	ml := m.Lines[0]
	require.Equal(t, fx.poLine.ID, ml.PurchaseLineID)
	require.Equal(t, 50.0, ml.RequestQty)
	require.Equal(t, 10.0, ml.BudgetQty)
	require.Equal(t, 120.0, ml.RequestPrice)
	require.Equal(t, 100.0, ml.BudgetPrice)
	require.Equal(t, 6000.0, ml.RequestAmount)
	require.Equal(t, 1000.0, ml.BudgetAmount)
	require.Equal(t, 5000.0, ml.OverAmount)
	require.Equal(t, models.BreachBoth, ml.Breach)

	var order models.PurchaseOrder
	require.NoError(t, db.First(&order, fx.order.ID).Error)
	require.NotNil(t, order.MemoID)
	require.Equal(t, m.ID, *order.MemoID)
}

func TestRequestMemoIsIdempotentWhileOpen(t *testing.T) {
	db := newTestDB(t)
	fx := seedBreachingOrder(t, db)

	first, err := RequestMemo(db, fx.order.ID, time.Now())
	require.NoError(t, err)
	second, err := RequestMemo(db, fx.order.ID, time.Now())
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.OverBudgetMemo{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRequestMemoRejectsOrderWithinBudget(t *testing.T) {
	db := newTestDB(t)
	fx := seedBreachingOrder(t, db)
	require.NoError(t, db.Model(&models.PurchaseOrderLine{}).Where("id = ?", fx.poLine.ID).
		Updates(map[string]any{"qty": 5.0, "unit_price": 100.0, "subtotal": 500.0}).Error)

	_, err := RequestMemo(db, fx.order.ID, time.Now())
	require.Error(t, err)
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	require.Equal(t, fiber.StatusBadRequest, fe.Code)
}

func TestConfirmMemoRaisesPlanAndArmsGate(t *testing.T) {
	db := newTestDB(t)
	fx := seedBreachingOrder(t, db)

	m, err := RequestMemo(db, fx.order.ID, time.Now())
	require.NoError(t, err)

	ok, err := purchase.CanFinalize(db, fx.order)
	require.NoError(t, err)
	require.False(t, ok)

	confirmed, err := ConfirmMemo(db, m.ID, time.Now())
	require.NoError(t, err)
	require.True(t, confirmed.Confirmed)
	require.NotNil(t, confirmed.ConfirmedAt)

	var line models.BudgetLine
	require.NoError(t, db.First(&line, fx.line.ID).Error)
	require.Equal(t, 50.0, line.QtyPlan)
	require.Equal(t, 120.0, line.UnitPrice)
	require.Equal(t, 10.0, line.InitialQtyPlan)

	var order models.PurchaseOrder
	require.NoError(t, db.First(&order, fx.order.ID).Error)
	require.True(t, order.MemoDone)

	ok, err = purchase.CanFinalize(db, &order)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestConfirmMemoNeverLowersPlan(t *testing.T) {
	db := newTestDB(t)
	fx := seedBreachingOrder(t, db)

	m, err := RequestMemo(db, fx.order.ID, time.Now())
	require.NoError(t, err)

	// Plan was raised past the request before confirmation.
	require.NoError(t, db.Model(&models.BudgetLine{}).Where("id = ?", fx.line.ID).
		Updates(map[string]any{"qty_plan": 80.0, "unit_price": 200.0}).Error)

	_, err = ConfirmMemo(db, m.ID, time.Now())
	require.NoError(t, err)

	var line models.BudgetLine
	require.NoError(t, db.First(&line, fx.line.ID).Error)
	require.Equal(t, 80.0, line.QtyPlan)
	require.Equal(t, 200.0, line.UnitPrice)
}

func TestConfirmMemoIsTerminal(t *testing.T) {
	db := newTestDB(t)
	fx := seedBreachingOrder(t, db)

	m, err := RequestMemo(db, fx.order.ID, time.Now())
	require.NoError(t, err)
	_, err = ConfirmMemo(db, m.ID, time.Now())
	require.NoError(t, err)

	_, err = ConfirmMemo(db, m.ID, time.Now())
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	require.Equal(t, fiber.StatusConflict, fe.Code)
}

func TestEditAfterConfirmDisarmsGateAndOpensFreshMemo(t *testing.T) {
	db := newTestDB(t)
	fx := seedBreachingOrder(t, db)

	m, err := RequestMemo(db, fx.order.ID, time.Now())
	require.NoError(t, err)
	_, err = ConfirmMemo(db, m.ID, time.Now())
	require.NoError(t, err)

	// Qty edit after approval: the approval covered different numbers.
	require.NoError(t, db.Model(&models.PurchaseOrderLine{}).Where("id = ?", fx.poLine.ID).
		Updates(map[string]any{"qty": 90.0, "subtotal": 10800.0}).Error)
	require.NoError(t, purchase.DisarmMemo(db, fx.order.ID))

	var order models.PurchaseOrder
	require.NoError(t, db.First(&order, fx.order.ID).Error)
	require.False(t, order.MemoDone)

	fresh, err := RequestMemo(db, fx.order.ID, time.Now())
	require.NoError(t, err)
	require.NotEqual(t, m.ID, fresh.ID)
	require.Equal(t, 90.0, fresh.Lines[0].RequestQty)
}
