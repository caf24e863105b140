package purchase

import (
	"fmt"

	"budget-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Classify compares a purchase line against the budget lines of its
// (budget item, product) pair. Boundary is exclusive on the purchase side:
// qty equal to the total remaining and price equal to the highest budgeted
// unit price are still within budget.
func Classify(tx *gorm.DB, line *models.PurchaseOrderLine) (models.BreachType, error) {
	if line.BudgetItemID == nil || line.ProductID == 0 {
		return models.BreachNone, nil
	}

	var budgetLines []models.BudgetLine
	if err := tx.Where("item_id = ? AND product_id = ?", *line.BudgetItemID, line.ProductID).
		Find(&budgetLines).Error; err != nil {
		return models.BreachNone, err
	}
	if len(budgetLines) == 0 {
		// No matching budget lines: nothing to measure against. The write-time
		// precondition is enforced separately by ValidateProductBudgeted.
		return models.BreachNone, nil
	}

	totalRemain := 0.0
	maxPrice := budgetLines[0].UnitPrice
	for _, bl := range budgetLines {
		totalRemain += bl.QtyRemain
		if bl.UnitPrice > maxPrice {
			maxPrice = bl.UnitPrice
		}
	}

	overQty := line.Qty > totalRemain
	overPrice := line.UnitPrice > maxPrice
	switch {
	case overQty && overPrice:
		return models.BreachBoth, nil
	case overQty:
		return models.BreachQuantity, nil
	case overPrice:
		return models.BreachPrice, nil
	}
	return models.BreachNone, nil
}

// ValidateProductBudgeted blocks saving a purchase line whose product has no
// budget line under the referenced budget item.
func ValidateProductBudgeted(tx *gorm.DB, line *models.PurchaseOrderLine) error {
	if line.BudgetItemID == nil {
		return nil
	}

	var count int64
	if err := tx.Model(&models.BudgetLine{}).
		Where("item_id = ? AND product_id = ?", *line.BudgetItemID, line.ProductID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		var product models.Product
		var item models.BudgetItem
		tx.First(&product, line.ProductID)
		tx.First(&item, *line.BudgetItemID)
		return fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("product %q is not available on budget item %q", product.Name, item.Name))
	}
	return nil
}

// BudgetSnapshot returns the current remaining qty, highest unit price and
// planned amount over the budget lines of an (item, product) pair. Used for
// memo line snapshots.
func BudgetSnapshot(tx *gorm.DB, itemID, productID uint) (qty, price, amount float64, err error) {
	var budgetLines []models.BudgetLine
	if err = tx.Where("item_id = ? AND product_id = ?", itemID, productID).
		Find(&budgetLines).Error; err != nil {
		return 0, 0, 0, err
	}
	for _, bl := range budgetLines {
		qty += bl.QtyRemain
		amount += bl.Subtotal
		if bl.UnitPrice > price {
			price = bl.UnitPrice
		}
	}
	return qty, price, amount, nil
}
