package purchase

import (
	"errors"

	"budget-backend/internal/budget"
	"budget-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ErrMemoRequired blocks order confirmation while a breach is unapproved.
var ErrMemoRequired = fiber.NewError(fiber.StatusConflict,
	"purchase order is over budget: create and confirm an over-budget memo before confirming the order")

// RefreshLine re-classifies one purchase line, stores its over-budget flag
// and refreshes the snapshot of any open memo line pointing at it. Confirmed
// memos are historical record and are never touched.
func RefreshLine(tx *gorm.DB, line *models.PurchaseOrderLine) error {
	cls, err := Classify(tx, line)
	if err != nil {
		return err
	}
	over := cls != models.BreachNone
	if err := tx.Model(&models.PurchaseOrderLine{}).Where("id = ?", line.ID).
		Update("over_budget", over).Error; err != nil {
		return err
	}
	line.OverBudget = over

	var memoLine models.MemoLine
	err = tx.Joins("JOIN over_budget_memos ON over_budget_memos.id = memo_lines.memo_id").
		Where("memo_lines.purchase_line_id = ? AND over_budget_memos.confirmed = ?", line.ID, false).
		First(&memoLine).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if line.BudgetItemID == nil {
		return nil
	}

	budgetQty, budgetPrice, budgetAmount, err := BudgetSnapshot(tx, *line.BudgetItemID, line.ProductID)
	if err != nil {
		return err
	}
	return tx.Model(&models.MemoLine{}).Where("id = ?", memoLine.ID).Updates(map[string]any{
		"request_qty":    line.Qty,
		"request_price":  line.UnitPrice,
		"request_amount": line.Subtotal,
		"budget_qty":     budgetQty,
		"budget_price":   budgetPrice,
		"budget_amount":  budgetAmount,
		"over_amount":    line.Subtotal - budgetAmount,
		"breach":         string(cls),
	}).Error
}

// RefreshOrderFlags recomputes HasOverBudget from the stored line flags.
func RefreshOrderFlags(tx *gorm.DB, orderID uint) error {
	var over int64
	if err := tx.Model(&models.PurchaseOrderLine{}).
		Where("order_id = ? AND over_budget = ?", orderID, true).
		Count(&over).Error; err != nil {
		return err
	}
	return tx.Model(&models.PurchaseOrder{}).Where("id = ?", orderID).
		Update("has_over_budget", over > 0).Error
}

// DisarmMemo clears the order's memo-done flag. Called whenever a line's qty
// or price changes after approval: the old approval covered different numbers.
func DisarmMemo(tx *gorm.DB, orderID uint) error {
	return tx.Model(&models.PurchaseOrder{}).Where("id = ?", orderID).
		Update("memo_done", false).Error
}

// CanFinalize reports whether the order may enter the committed set: no line
// currently breaching, or a confirmed memo covering the breach.
func CanFinalize(tx *gorm.DB, order *models.PurchaseOrder) (bool, error) {
	if order.MemoDone {
		return true, nil
	}
	var lines []models.PurchaseOrderLine
	if err := tx.Where("order_id = ?", order.ID).Find(&lines).Error; err != nil {
		return false, err
	}
	for i := range lines {
		cls, err := Classify(tx, &lines[i])
		if err != nil {
			return false, err
		}
		if cls != models.BreachNone {
			return false, nil
		}
	}
	return true, nil
}

// RecomputeOrderChains recomputes the ancestor chain of every budget item an
// order's lines reference. Used when invoice payment state moves lines in or
// out of the actual aggregate.
func RecomputeOrderChains(tx *gorm.DB, orderID uint) error {
	var itemIDs []uint
	if err := tx.Model(&models.PurchaseOrderLine{}).
		Where("order_id = ? AND budget_item_id IS NOT NULL", orderID).
		Distinct().Pluck("budget_item_id", &itemIDs).Error; err != nil {
		return err
	}
	for _, id := range itemIDs {
		if err := budget.RecomputeChain(tx, id); err != nil {
			return err
		}
	}
	return nil
}

// ReconcileOrder reconciles every (budget item, product) pair touched by an
// order's lines and recomputes the affected ancestor chains. excludeOrderIDs
// is forwarded to the reconciler for the delete path.
func ReconcileOrder(tx *gorm.DB, orderID uint, excludeOrderIDs ...uint) error {
	var lines []models.PurchaseOrderLine
	if err := tx.Where("order_id = ?", orderID).Find(&lines).Error; err != nil {
		return err
	}

	seen := make(map[[2]uint]bool)
	for _, ln := range lines {
		if ln.BudgetItemID == nil {
			continue
		}
		key := [2]uint{*ln.BudgetItemID, ln.ProductID}
		if seen[key] {
			continue
		}
		seen[key] = true

		if err := ReconcileBudgetLines(tx, key[0], key[1], excludeOrderIDs...); err != nil {
			return err
		}
		if err := budget.RecomputeChain(tx, key[0]); err != nil {
			return err
		}
	}
	return nil
}
