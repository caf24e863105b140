package purchase

import (
	"budget-backend/internal/models"

	"gorm.io/gorm"
)

// ReconcileBudgetLines recomputes the working plan of every budget line for
// an (item, product) pair from the purchase lines that are currently
// committed: qty plan becomes max(total committed qty, initial plan qty) and
// unit price becomes max(highest committed price, initial price). The plan
// never drops below its initial baseline. excludeOrderIDs lets order deletion
// reconcile as if the dying order were already gone.
func ReconcileBudgetLines(tx *gorm.DB, itemID, productID uint, excludeOrderIDs ...uint) error {
	var budgetLines []models.BudgetLine
	if err := tx.Where("item_id = ? AND product_id = ?", itemID, productID).
		Find(&budgetLines).Error; err != nil {
		return err
	}
	if len(budgetLines) == 0 {
		return nil
	}

	q := tx.Model(&models.PurchaseOrderLine{}).
		Joins("JOIN purchase_orders ON purchase_orders.id = purchase_order_lines.order_id").
		Where("purchase_order_lines.budget_item_id = ? AND purchase_order_lines.product_id = ? AND purchase_orders.state IN ?",
			itemID, productID, models.CommittedPurchaseStates)
	if len(excludeOrderIDs) > 0 {
		q = q.Where("purchase_order_lines.order_id NOT IN ?", excludeOrderIDs)
	}

	var agg struct {
		TotalQty float64
		MaxPrice float64
	}
	if err := q.Select("COALESCE(SUM(purchase_order_lines.qty),0) AS total_qty, COALESCE(MAX(purchase_order_lines.unit_price),0) AS max_price").
		Scan(&agg).Error; err != nil {
		return err
	}

	for i := range budgetLines {
		bl := &budgetLines[i]

		qtyPlan := agg.TotalQty
		if bl.InitialQtyPlan > qtyPlan {
			qtyPlan = bl.InitialQtyPlan
		}
		price := agg.MaxPrice
		if bl.InitialUnitPrice > price {
			price = bl.InitialUnitPrice
		}

		if qtyPlan == bl.QtyPlan && price == bl.UnitPrice {
			continue
		}
		if err := tx.Model(&models.BudgetLine{}).Where("id = ?", bl.ID).Updates(map[string]any{
			"qty_plan":   qtyPlan,
			"unit_price": price,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}
