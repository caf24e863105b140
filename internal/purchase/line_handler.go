package purchase

import (
	"errors"

	"budget-backend/internal/budget"
	"budget-backend/internal/database"
	"budget-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UpdatePurchaseLineRequest struct {
	ProductID    *uint    `json:"product_id"`
	BudgetItemID *uint    `json:"budget_item_id"`
	Qty          *float64 `json:"qty"`
	UnitPrice    *float64 `json:"unit_price"`
}

func AddPurchaseLineHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid purchase order id")
		}
		var body PurchaseLineInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.ProductID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "product_id is required")
		}

		var line models.PurchaseOrderLine
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var order models.PurchaseOrder
			if err := tx.First(&order, orderID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "purchase order not found")
				}
				return err
			}

			line = models.PurchaseOrderLine{
				OrderID:      order.ID,
				ProductID:    body.ProductID,
				BudgetItemID: body.BudgetItemID,
				Qty:          body.Qty,
				UnitPrice:    body.UnitPrice,
				Subtotal:     body.Qty * body.UnitPrice,
			}
			if line.BudgetItemID != nil {
				if err := validateLeafItem(tx, *line.BudgetItemID); err != nil {
					return err
				}
				if err := ValidateProductBudgeted(tx, &line); err != nil {
					return err
				}
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
			if err := RefreshLine(tx, &line); err != nil {
				return err
			}
			if line.BudgetItemID != nil {
				if err := ReconcileBudgetLines(tx, *line.BudgetItemID, line.ProductID); err != nil {
					return err
				}
				if err := budget.RecomputeChain(tx, *line.BudgetItemID); err != nil {
					return err
				}
			}
			// A new line means new numbers the old approval never covered.
			if order.MemoDone {
				if err := DisarmMemo(tx, order.ID); err != nil {
					return err
				}
			}
			return RefreshOrderFlags(tx, order.ID)
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(line)
	}
}

func UpdatePurchaseLineHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid purchase line id")
		}
		var body UpdatePurchaseLineRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		var line models.PurchaseOrderLine
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&line, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "purchase line not found")
				}
				return err
			}
			var order models.PurchaseOrder
			if err := tx.First(&order, line.OrderID).Error; err != nil {
				return err
			}

			oldItemID := line.BudgetItemID
			oldProductID := line.ProductID
			qtyOrPriceChanged := false

			if body.Qty != nil && *body.Qty != line.Qty {
				line.Qty = *body.Qty
				qtyOrPriceChanged = true
			}
			if body.UnitPrice != nil && *body.UnitPrice != line.UnitPrice {
				line.UnitPrice = *body.UnitPrice
				qtyOrPriceChanged = true
			}
			if body.ProductID != nil {
				line.ProductID = *body.ProductID
			}
			if body.BudgetItemID != nil {
				line.BudgetItemID = body.BudgetItemID
			}
			line.Subtotal = line.Qty * line.UnitPrice

			if line.BudgetItemID != nil {
				if err := validateLeafItem(tx, *line.BudgetItemID); err != nil {
					return err
				}
				if err := ValidateProductBudgeted(tx, &line); err != nil {
					return err
				}
			}
			if err := tx.Save(&line).Error; err != nil {
				return err
			}

			if err := RefreshLine(tx, &line); err != nil {
				return err
			}

			pairChanged := oldItemID != nil &&
				(line.BudgetItemID == nil || *line.BudgetItemID != *oldItemID || line.ProductID != oldProductID)
			if pairChanged {
				if err := ReconcileBudgetLines(tx, *oldItemID, oldProductID); err != nil {
					return err
				}
				if err := budget.RecomputeChain(tx, *oldItemID); err != nil {
					return err
				}
			}
			if line.BudgetItemID != nil {
				if err := ReconcileBudgetLines(tx, *line.BudgetItemID, line.ProductID); err != nil {
					return err
				}
				if err := budget.RecomputeChain(tx, *line.BudgetItemID); err != nil {
					return err
				}
			}

			// The approved numbers changed, so the approval no longer holds.
			if qtyOrPriceChanged && order.MemoDone {
				if err := DisarmMemo(tx, order.ID); err != nil {
					return err
				}
			}
			return RefreshOrderFlags(tx, order.ID)
		})
		if err != nil {
			return err
		}
		return c.JSON(line)
	}
}

func DeletePurchaseLineHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid purchase line id")
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var line models.PurchaseOrderLine
			if err := tx.First(&line, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "purchase line not found")
				}
				return err
			}
			var order models.PurchaseOrder
			if err := tx.First(&order, line.OrderID).Error; err != nil {
				return err
			}

			// Open memo snapshots of this line go with it; confirmed memos
			// stay as historical record.
			if err := tx.Where("purchase_line_id = ? AND memo_id IN (?)", line.ID,
				tx.Table("over_budget_memos").Select("id").Where("confirmed = ?", false)).
				Delete(&models.MemoLine{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&line).Error; err != nil {
				return err
			}

			if line.BudgetItemID != nil {
				if err := ReconcileBudgetLines(tx, *line.BudgetItemID, line.ProductID); err != nil {
					return err
				}
				if err := budget.RecomputeChain(tx, *line.BudgetItemID); err != nil {
					return err
				}
			}
			if order.MemoDone {
				if err := DisarmMemo(tx, order.ID); err != nil {
					return err
				}
			}
			return RefreshOrderFlags(tx, order.ID)
		})
		if err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
