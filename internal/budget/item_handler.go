package budget

import (
	"errors"

	"budget-backend/internal/database"
	"budget-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateBudgetItemRequest struct {
	BudgetID    uint   `json:"budget_id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	ParentID    *uint  `json:"parent_id"`
	CheckDetail bool   `json:"check_detail"`
}

type UpdateBudgetItemRequest struct {
	Name        *string `json:"name"`
	Type        *string `json:"type"`
	ParentID    *uint   `json:"parent_id"`
	CheckDetail *bool   `json:"check_detail"`
}

// validateParent enforces the tree shape: one level of nesting, and a parent
// node never owns budget lines.
func validateParent(tx *gorm.DB, budgetID uint, parentID uint) error {
	var parent models.BudgetItem
	if err := tx.First(&parent, parentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, "parent budget item not found")
		}
		return err
	}
	if parent.BudgetID != budgetID {
		return fiber.NewError(fiber.StatusBadRequest, "parent budget item belongs to another budget")
	}
	if parent.ParentID != nil {
		return fiber.NewError(fiber.StatusBadRequest, "budget items can only be nested one level deep")
	}
	var lineCount int64
	if err := tx.Model(&models.BudgetLine{}).Where("item_id = ?", parent.ID).Count(&lineCount).Error; err != nil {
		return err
	}
	if lineCount > 0 {
		return fiber.NewError(fiber.StatusBadRequest, "cannot attach a child under a budget item that has budget lines")
	}
	return nil
}

func CreateBudgetItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateBudgetItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.BudgetID == 0 || body.Name == "" || body.Type == "" {
			return fiber.NewError(fiber.StatusBadRequest, "budget_id, name and type are required")
		}

		var item models.BudgetItem
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			var b models.Budget
			if err := tx.First(&b, body.BudgetID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusBadRequest, "budget not found")
				}
				return err
			}
			if body.ParentID != nil {
				if err := validateParent(tx, b.ID, *body.ParentID); err != nil {
					return err
				}
			}

			code, err := nextItemCode(tx, &b, body.ParentID)
			if err != nil {
				return err
			}
			item = models.BudgetItem{
				BudgetID:    b.ID,
				Code:        code,
				Name:        body.Name,
				DisplayName: displayName(code, body.Name),
				Type:        body.Type,
				ParentID:    body.ParentID,
				CheckDetail: body.CheckDetail,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			return RecomputeChain(tx, item.ID)
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(item)
	}
}

func UpdateBudgetItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid budget item id")
		}
		var body UpdateBudgetItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		var item models.BudgetItem
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&item, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "budget item not found")
				}
				return err
			}

			oldParentID := item.ParentID

			if body.Name != nil {
				item.Name = *body.Name
				item.DisplayName = displayName(item.Code, item.Name)
			}
			if body.Type != nil {
				item.Type = *body.Type
			}
			if body.CheckDetail != nil {
				item.CheckDetail = *body.CheckDetail
			}

			parentChanged := body.ParentID != nil &&
				(item.ParentID == nil || *item.ParentID != *body.ParentID)
			if parentChanged {
				var childCount int64
				if err := tx.Model(&models.BudgetItem{}).Where("parent_id = ?", item.ID).Count(&childCount).Error; err != nil {
					return err
				}
				if childCount > 0 {
					return fiber.NewError(fiber.StatusBadRequest, "budget items can only be nested one level deep")
				}
				if err := validateParent(tx, item.BudgetID, *body.ParentID); err != nil {
					return err
				}
				item.ParentID = body.ParentID
			}

			if err := tx.Save(&item).Error; err != nil {
				return err
			}

			if err := RecomputeChain(tx, item.ID); err != nil {
				return err
			}
			// A detached child leaves a stale sum behind on its old parent.
			if parentChanged && oldParentID != nil {
				if err := RecomputeChain(tx, *oldParentID); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		return c.JSON(item)
	}
}

func DeleteBudgetItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid budget item id")
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var item models.BudgetItem
			if err := tx.First(&item, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "budget item not found")
				}
				return err
			}

			var refs int64
			if err := tx.Model(&models.PurchaseOrderLine{}).
				Where("budget_item_id = ? OR budget_item_id IN (?)", item.ID,
					tx.Table("budget_items").Select("id").Where("parent_id = ?", item.ID)).
				Count(&refs).Error; err != nil {
				return err
			}
			if refs > 0 {
				return fiber.NewError(fiber.StatusConflict, "budget item is referenced by purchase order lines and cannot be deleted")
			}

			// Children and lines go with the item.
			if err := tx.Where("parent_id = ?", item.ID).Delete(&models.BudgetItem{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&item).Error; err != nil {
				return err
			}
			if item.ParentID != nil {
				return RecomputeChain(tx, *item.ParentID)
			}
			return nil
		})
		if err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
