package budget

import (
	"errors"

	"budget-backend/internal/database"
	"budget-backend/internal/models"
	"budget-backend/internal/pricing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateBudgetLineRequest struct {
	ItemID    uint     `json:"item_id"`
	ProductID uint     `json:"product_id"`
	QtyPlan   float64  `json:"qty_plan"`
	UnitPrice *float64 `json:"unit_price"` // defaults to the vendor price lookup
	Remark    string   `json:"remark"`
}

type UpdateBudgetLineRequest struct {
	QtyPlan   *float64 `json:"qty_plan"`
	UnitPrice *float64 `json:"unit_price"`
	Remark    *string  `json:"remark"`
}

func CreateBudgetLineHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateBudgetLineRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.ItemID == 0 || body.ProductID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "item_id and product_id are required")
		}
		if body.QtyPlan < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "qty_plan must not be negative")
		}

		var line models.BudgetLine
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			var item models.BudgetItem
			if err := tx.First(&item, body.ItemID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusBadRequest, "budget item not found")
				}
				return err
			}

			// Only leaf items plan through lines.
			var childCount int64
			if err := tx.Model(&models.BudgetItem{}).Where("parent_id = ?", item.ID).Count(&childCount).Error; err != nil {
				return err
			}
			if childCount > 0 {
				return fiber.NewError(fiber.StatusBadRequest, "budget lines can only be added to items without children")
			}

			var product models.Product
			if err := tx.First(&product, body.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusBadRequest, "product not found")
				}
				return err
			}

			price := 0.0
			if body.UnitPrice != nil {
				price = *body.UnitPrice
			} else {
				var b models.Budget
				if err := tx.First(&b, item.BudgetID).Error; err != nil {
					return err
				}
				p, err := pricing.DefaultUnitPrice(tx, product.ID, b.Currency)
				if err != nil {
					return err
				}
				price = p
			}

			line = models.BudgetLine{
				ItemID:           item.ID,
				ProductID:        product.ID,
				Name:             product.Name,
				UOM:              product.UOM,
				QtyPlan:          body.QtyPlan,
				InitialQtyPlan:   body.QtyPlan,
				UnitPrice:        price,
				InitialUnitPrice: price,
				Remark:           body.Remark,
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
			return RecomputeChain(tx, item.ID)
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(line)
	}
}

// UpdateBudgetLineHandler edits the working plan. The plan can only be raised
// relative to the initial baseline; lowering it below the baseline is the
// reconciler's job, not the user's.
func UpdateBudgetLineHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid budget line id")
		}
		var body UpdateBudgetLineRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		var line models.BudgetLine
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&line, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "budget line not found")
				}
				return err
			}

			if body.QtyPlan != nil {
				if *body.QtyPlan < line.InitialQtyPlan {
					return fiber.NewError(fiber.StatusBadRequest, "qty_plan cannot drop below the initial plan quantity")
				}
				line.QtyPlan = *body.QtyPlan
			}
			if body.UnitPrice != nil {
				if *body.UnitPrice < line.InitialUnitPrice {
					return fiber.NewError(fiber.StatusBadRequest, "unit_price cannot drop below the initial unit price")
				}
				line.UnitPrice = *body.UnitPrice
			}
			if body.Remark != nil {
				line.Remark = *body.Remark
			}

			if err := tx.Save(&line).Error; err != nil {
				return err
			}
			return RecomputeChain(tx, line.ItemID)
		})
		if err != nil {
			return err
		}
		return c.JSON(line)
	}
}

func DeleteBudgetLineHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid budget line id")
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var line models.BudgetLine
			if err := tx.First(&line, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "budget line not found")
				}
				return err
			}
			if err := tx.Delete(&line).Error; err != nil {
				return err
			}
			return RecomputeChain(tx, line.ItemID)
		})
		if err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
