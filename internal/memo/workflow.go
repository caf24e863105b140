package memo

import (
	"errors"
	"fmt"
	"time"

	"budget-backend/internal/budget"
	"budget-backend/internal/models"
	"budget-backend/internal/purchase"
	"budget-backend/internal/sequence"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// RequestMemo opens an over-budget memo for an order. Idempotent while an
// open (unconfirmed) memo exists: the open memo is returned instead of a new
// one. A confirmed memo is historical record; after later edits re-trigger a
// breach, a fresh memo is created.
func RequestMemo(tx *gorm.DB, orderID uint, now time.Time) (*models.OverBudgetMemo, error) {
	var order models.PurchaseOrder
	if err := tx.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "purchase order not found")
		}
		return nil, err
	}

	var existing models.OverBudgetMemo
	err := tx.Preload("Lines").Where("order_id = ? AND confirmed = ?", orderID, false).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var lines []models.PurchaseOrderLine
	if err := tx.Where("order_id = ?", orderID).Find(&lines).Error; err != nil {
		return nil, err
	}

	type breachingLine struct {
		line models.PurchaseOrderLine
		cls  models.BreachType
	}
	var over []breachingLine
	for i := range lines {
		cls, err := purchase.Classify(tx, &lines[i])
		if err != nil {
			return nil, err
		}
		if cls != models.BreachNone {
			over = append(over, breachingLine{lines[i], cls})
		}
	}
	if len(over) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "purchase order has no over-budget lines")
	}

	number, err := sequence.Next(tx, sequence.CodeMemo)
	if err != nil {
		return nil, err
	}

	m := models.OverBudgetMemo{
		Number:  fmt.Sprintf("MOB/%s/%d", number, now.Year()),
		OrderID: orderID,
		Date:    now,
	}
	if err := tx.Create(&m).Error; err != nil {
		return nil, err
	}

	for _, b := range over {
		budgetQty, budgetPrice, budgetAmount, err := purchase.BudgetSnapshot(tx, *b.line.BudgetItemID, b.line.ProductID)
		if err != nil {
			return nil, err
		}
		ml := models.MemoLine{
			MemoID:         m.ID,
			PurchaseLineID: b.line.ID,
			ProductID:      b.line.ProductID,
			BudgetItemID:   *b.line.BudgetItemID,
			RequestQty:     b.line.Qty,
			BudgetQty:      budgetQty,
			RequestPrice:   b.line.UnitPrice,
			BudgetPrice:    budgetPrice,
			RequestAmount:  b.line.Subtotal,
			BudgetAmount:   budgetAmount,
			OverAmount:     b.line.Subtotal - budgetAmount,
			Breach:         b.cls,
		}
		if err := tx.Create(&ml).Error; err != nil {
			return nil, err
		}
		m.Lines = append(m.Lines, ml)
	}

	if err := tx.Model(&models.PurchaseOrder{}).Where("id = ?", orderID).
		Update("memo_id", m.ID).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ConfirmMemo approves a memo: the order's memo-done flag is set, and every
// budget line covered by a memo line is raised up to the approved request
// quantity and price. Raises only, never lowers. Terminal for the memo.
func ConfirmMemo(tx *gorm.DB, memoID uint, now time.Time) (*models.OverBudgetMemo, error) {
	var m models.OverBudgetMemo
	if err := tx.Preload("Lines").First(&m, memoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "memo not found")
		}
		return nil, err
	}
	if m.Confirmed {
		return nil, fiber.NewError(fiber.StatusConflict, "memo is already confirmed")
	}

	if err := tx.Model(&models.OverBudgetMemo{}).Where("id = ?", m.ID).Updates(map[string]any{
		"confirmed":    true,
		"confirmed_at": now,
	}).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&models.PurchaseOrder{}).Where("id = ?", m.OrderID).
		Update("memo_done", true).Error; err != nil {
		return nil, err
	}

	for _, ml := range m.Lines {
		var budgetLines []models.BudgetLine
		if err := tx.Where("item_id = ? AND product_id = ?", ml.BudgetItemID, ml.ProductID).
			Find(&budgetLines).Error; err != nil {
			return nil, err
		}
		for i := range budgetLines {
			bl := &budgetLines[i]
			updates := map[string]any{}
			if ml.RequestQty > bl.QtyPlan {
				updates["qty_plan"] = ml.RequestQty
			}
			if ml.RequestPrice > bl.UnitPrice {
				updates["unit_price"] = ml.RequestPrice
			}
			if len(updates) == 0 {
				continue
			}
			if err := tx.Model(&models.BudgetLine{}).Where("id = ?", bl.ID).
				Updates(updates).Error; err != nil {
				return nil, err
			}
		}
		if err := budget.RecomputeChain(tx, ml.BudgetItemID); err != nil {
			return nil, err
		}
	}

	m.Confirmed = true
	m.ConfirmedAt = &now
	return &m, nil
}
