package budget

import (
	"fmt"
	"math"

	"budget-backend/internal/models"

	"gorm.io/gorm"
)

// RecomputeChain recomputes the derived fields of an item and then of every
// ancestor, strictly child-before-parent. Every write path that can change a
// leaf's inputs (budget line edit, purchase line write, lifecycle change,
// child attach/detach) must call this inside its transaction.
func RecomputeChain(tx *gorm.DB, itemID uint) error {
	parentID, err := RecomputeItem(tx, itemID)
	if err != nil {
		return err
	}
	for parentID != nil {
		parentID, err = RecomputeItem(tx, *parentID)
		if err != nil {
			return err
		}
	}
	return nil
}

// RecomputeItem recomputes one item from its own inputs: a node with children
// sums its children's already-stored fields, a leaf derives everything from
// its budget lines and the purchase lines referencing it. Idempotent.
// Returns the parent id so callers can walk up.
func RecomputeItem(tx *gorm.DB, itemID uint) (*uint, error) {
	var item models.BudgetItem
	if err := tx.First(&item, itemID).Error; err != nil {
		return nil, err
	}

	var childCount, lineCount int64
	if err := tx.Model(&models.BudgetItem{}).Where("parent_id = ?", item.ID).Count(&childCount).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&models.BudgetLine{}).Where("item_id = ?", item.ID).Count(&lineCount).Error; err != nil {
		return nil, err
	}

	if childCount > 0 && lineCount > 0 {
		return nil, fmt.Errorf("budget item %d (%s) has both children and own lines", item.ID, item.Code)
	}

	var err error
	if childCount > 0 {
		err = recomputeParent(tx, &item)
	} else {
		err = recomputeLeaf(tx, &item)
	}
	if err != nil {
		return nil, err
	}
	return item.ParentID, nil
}

// RecomputeBudget recomputes every item of a budget, children before
// top-level parents. Used after bulk mutations such as template instantiation.
func RecomputeBudget(tx *gorm.DB, budgetID uint) error {
	var ids []uint
	if err := tx.Model(&models.BudgetItem{}).
		Where("budget_id = ? AND parent_id IS NOT NULL", budgetID).
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := RecomputeItem(tx, id); err != nil {
			return err
		}
	}

	ids = ids[:0]
	if err := tx.Model(&models.BudgetItem{}).
		Where("budget_id = ? AND parent_id IS NULL", budgetID).
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := RecomputeItem(tx, id); err != nil {
			return err
		}
	}
	return nil
}

func recomputeLeaf(tx *gorm.DB, item *models.BudgetItem) error {
	var lines []models.BudgetLine
	if err := tx.Where("item_id = ?", item.ID).Find(&lines).Error; err != nil {
		return err
	}

	plan := 0.0
	for i := range lines {
		ln := &lines[i]

		var used float64
		if err := tx.Model(&models.PurchaseOrderLine{}).
			Joins("JOIN purchase_orders ON purchase_orders.id = purchase_order_lines.order_id").
			Where("purchase_order_lines.budget_item_id = ? AND purchase_order_lines.product_id = ? AND purchase_orders.state IN ?",
				item.ID, ln.ProductID, models.CommittedPurchaseStates).
			Select("COALESCE(SUM(purchase_order_lines.qty), 0)").
			Scan(&used).Error; err != nil {
			return err
		}

		ln.QtyUsed = used
		ln.QtyRemain = ln.QtyPlan - used
		ln.Subtotal = ln.QtyPlan * ln.UnitPrice
		plan += ln.Subtotal

		if err := tx.Model(&models.BudgetLine{}).Where("id = ?", ln.ID).Updates(map[string]any{
			"qty_used":   ln.QtyUsed,
			"qty_remain": ln.QtyRemain,
			"subtotal":   ln.Subtotal,
		}).Error; err != nil {
			return err
		}
	}

	var request float64
	if err := tx.Model(&models.PurchaseOrderLine{}).
		Joins("JOIN purchase_orders ON purchase_orders.id = purchase_order_lines.order_id").
		Where("purchase_order_lines.budget_item_id = ? AND purchase_orders.state IN ?",
			item.ID, models.CommittedPurchaseStates).
		Select("COALESCE(SUM(purchase_order_lines.subtotal), 0)").
		Scan(&request).Error; err != nil {
		return err
	}

	// Actual counts a line once some invoice of its order is fully paid.
	var actual float64
	if err := tx.Model(&models.PurchaseOrderLine{}).
		Where("budget_item_id = ? AND order_id IN (?)", item.ID,
			tx.Table("invoices").Select("order_id").Where("payment_state = ?", models.PaymentPaid)).
		Select("COALESCE(SUM(subtotal), 0)").
		Scan(&actual).Error; err != nil {
		return err
	}

	return tx.Model(&models.BudgetItem{}).Where("id = ?", item.ID).Updates(map[string]any{
		"budget_plan": plan,
		"request":     request,
		"remaining":   plan - request,
		"actual":      actual,
		"over_budget": math.Max(0, actual-plan),
	}).Error
}

func recomputeParent(tx *gorm.DB, item *models.BudgetItem) error {
	var s struct {
		Plan      float64
		Request   float64
		Remaining float64
		Actual    float64
		Over      float64
	}
	if err := tx.Model(&models.BudgetItem{}).
		Where("parent_id = ?", item.ID).
		Select("COALESCE(SUM(budget_plan),0) AS plan, COALESCE(SUM(request),0) AS request, COALESCE(SUM(remaining),0) AS remaining, COALESCE(SUM(actual),0) AS actual, COALESCE(SUM(over_budget),0) AS over").
		Scan(&s).Error; err != nil {
		return err
	}

	return tx.Model(&models.BudgetItem{}).Where("id = ?", item.ID).Updates(map[string]any{
		"budget_plan": s.Plan,
		"request":     s.Request,
		"remaining":   s.Remaining,
		"actual":      s.Actual,
		"over_budget": s.Over,
	}).Error
}
