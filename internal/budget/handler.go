package budget

import (
	"errors"
	"fmt"
	"time"

	"budget-backend/internal/audit"
	"budget-backend/internal/auth"
	"budget-backend/internal/config"
	"budget-backend/internal/database"
	"budget-backend/internal/models"
	"budget-backend/internal/sequence"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateBudgetRequest struct {
	Date        string `json:"date"` // "2025-01-31"
	BudgetType  string `json:"budget_type"`
	StartPeriod string `json:"start_period"`
	EndPeriod   string `json:"end_period"`
	Currency    string `json:"currency"`
	Notes       string `json:"notes"`
	TemplateID  *uint  `json:"template_id"`
}

type UpdateBudgetRequest struct {
	Date        *string `json:"date"`
	BudgetType  *string `json:"budget_type"`
	StartPeriod *string `json:"start_period"`
	EndPeriod   *string `json:"end_period"`
	Notes       *string `json:"notes"`
	TemplateID  *uint   `json:"template_id"`
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "invalid date, expected YYYY-MM-DD: "+s)
	}
	return t, nil
}

func CreateBudgetHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateBudgetRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.Date == "" || body.BudgetType == "" || body.StartPeriod == "" || body.EndPeriod == "" {
			return fiber.NewError(fiber.StatusBadRequest, "date, budget_type, start_period and end_period are required")
		}

		date, err := parseDate(body.Date)
		if err != nil {
			return err
		}
		start, err := parseDate(body.StartPeriod)
		if err != nil {
			return err
		}
		end, err := parseDate(body.EndPeriod)
		if err != nil {
			return err
		}
		if end.Before(start) {
			return fiber.NewError(fiber.StatusBadRequest, "end_period must not be before start_period")
		}

		currency := body.Currency
		if currency == "" {
			currency = cfg.DefaultCurrency
		}

		var created models.Budget
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			seq, err := sequence.Next(tx, sequence.CodeBudget)
			if err != nil {
				return err
			}
			b := models.Budget{
				BudgetNumber: fmt.Sprintf("%s/RAB-FO/ISAT-02/ENGR-PD/VII/FSI/%d", seq, date.Year()),
				Date:         date,
				BudgetType:   body.BudgetType,
				StartPeriod:  start,
				EndPeriod:    end,
				Currency:     currency,
				Notes:        body.Notes,
				TemplateID:   body.TemplateID,
			}
			if err := tx.Create(&b).Error; err != nil {
				return err
			}
			if b.TemplateID != nil {
				if err := instantiateTemplate(tx, &b); err != nil {
					return err
				}
				if err := RecomputeBudget(tx, b.ID); err != nil {
					return err
				}
			}
			created = b
			return nil
		})
		if err != nil {
			return err
		}

		userID, userName := auth.UserInfo(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID: userID, UserName: userName,
			EntityType: "budget", EntityID: created.ID,
			Action:      models.AuditActionCreate,
			Description: "Budget created: " + created.BudgetNumber,
			After:       created,
		})

		database.DB.Preload("Items.Lines").First(&created, created.ID)
		return c.Status(fiber.StatusCreated).JSON(created)
	}
}

func ListBudgetsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var budgets []models.Budget
		if err := database.DB.Order("id DESC").Find(&budgets).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "budgets could not be listed")
		}
		return c.JSON(budgets)
	}
}

func GetBudgetHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid budget id")
		}
		var b models.Budget
		if err := database.DB.Preload("Items.Lines").Preload("Template").
			First(&b, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "budget not found")
			}
			return err
		}
		return c.JSON(b)
	}
}

// UpdateBudgetHandler edits budget master data. Swapping the template wipes
// the existing item tree and regenerates it from the new template.
func UpdateBudgetHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid budget id")
		}
		var body UpdateBudgetRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		var b models.Budget
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&b, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "budget not found")
				}
				return err
			}

			if body.Date != nil {
				if b.Date, err = parseDate(*body.Date); err != nil {
					return err
				}
			}
			if body.StartPeriod != nil {
				if b.StartPeriod, err = parseDate(*body.StartPeriod); err != nil {
					return err
				}
			}
			if body.EndPeriod != nil {
				if b.EndPeriod, err = parseDate(*body.EndPeriod); err != nil {
					return err
				}
			}
			if body.BudgetType != nil {
				b.BudgetType = *body.BudgetType
			}
			if body.Notes != nil {
				b.Notes = *body.Notes
			}

			templateChanged := body.TemplateID != nil &&
				(b.TemplateID == nil || *b.TemplateID != *body.TemplateID)
			if templateChanged {
				b.TemplateID = body.TemplateID
			}

			if err := tx.Save(&b).Error; err != nil {
				return err
			}

			if templateChanged {
				if err := tx.Where("budget_id = ?", b.ID).Delete(&models.BudgetItem{}).Error; err != nil {
					return err
				}
				if err := instantiateTemplate(tx, &b); err != nil {
					return err
				}
				if err := RecomputeBudget(tx, b.ID); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		database.DB.Preload("Items.Lines").First(&b, b.ID)
		return c.JSON(b)
	}
}

func DeleteBudgetHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid budget id")
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var b models.Budget
			if err := tx.First(&b, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "budget not found")
				}
				return err
			}

			var refs int64
			if err := tx.Model(&models.PurchaseOrderLine{}).
				Where("budget_item_id IN (?)",
					tx.Table("budget_items").Select("id").Where("budget_id = ?", b.ID)).
				Count(&refs).Error; err != nil {
				return err
			}
			if refs > 0 {
				return fiber.NewError(fiber.StatusConflict, "budget is referenced by purchase order lines and cannot be deleted")
			}

			if err := tx.Where("budget_id = ?", b.ID).Delete(&models.BudgetItem{}).Error; err != nil {
				return err
			}
			return tx.Delete(&b).Error
		})
		if err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// instantiateTemplate creates the item tree for a budget from its template:
// top-level details first, then their children.
func instantiateTemplate(tx *gorm.DB, b *models.Budget) error {
	var tmpl models.BudgetTemplate
	if err := tx.Preload("Details").First(&tmpl, *b.TemplateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, "budget template not found")
		}
		return err
	}

	itemByDetail := make(map[uint]uint)
	for _, d := range tmpl.Details {
		if d.ParentID != nil {
			continue
		}
		code, err := nextItemCode(tx, b, nil)
		if err != nil {
			return err
		}
		item := models.BudgetItem{
			BudgetID:    b.ID,
			Code:        code,
			Name:        d.Name,
			DisplayName: displayName(code, d.Name),
			Type:        d.Type,
			CheckDetail: d.CheckDetail,
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		itemByDetail[d.ID] = item.ID
	}

	for _, d := range tmpl.Details {
		if d.ParentID == nil {
			continue
		}
		parentItemID, ok := itemByDetail[*d.ParentID]
		if !ok {
			continue
		}
		pid := parentItemID
		code, err := nextItemCode(tx, b, &pid)
		if err != nil {
			return err
		}
		item := models.BudgetItem{
			BudgetID:    b.ID,
			ParentID:    &pid,
			Code:        code,
			Name:        d.Name,
			DisplayName: displayName(code, d.Name),
			Type:        d.Type,
			CheckDetail: d.CheckDetail,
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
	}
	return nil
}
