package memo

import (
	"errors"
	"time"

	"budget-backend/internal/audit"
	"budget-backend/internal/auth"
	"budget-backend/internal/database"
	"budget-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UpdateMemoRequest struct {
	Reason *string `json:"reason"`
	Lines  []struct {
		ID          uint   `json:"id"`
		Description string `json:"description"`
	} `json:"lines"`
}

// RequestMemoHandler opens (or returns the open) over-budget memo for an order.
func RequestMemoHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid purchase order id")
		}

		var m *models.OverBudgetMemo
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var txErr error
			m, txErr = RequestMemo(tx, uint(orderID), time.Now())
			return txErr
		})
		if err != nil {
			return err
		}

		userID, userName := auth.UserInfo(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID: userID, UserName: userName,
			EntityType: "memo", EntityID: m.ID,
			Action:      models.AuditActionCreate,
			Description: "Over-budget memo requested: " + m.Number,
			After:       m,
		})
		return c.Status(fiber.StatusCreated).JSON(m)
	}
}

func ListMemosHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Preload("Lines").Order("id DESC")
		if orderID := c.QueryInt("order_id"); orderID > 0 {
			q = q.Where("order_id = ?", orderID)
		}
		var memos []models.OverBudgetMemo
		if err := q.Find(&memos).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "memos could not be listed")
		}
		return c.JSON(memos)
	}
}

func GetMemoHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid memo id")
		}
		var m models.OverBudgetMemo
		if err := database.DB.Preload("Lines").First(&m, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "memo not found")
			}
			return err
		}
		return c.JSON(m)
	}
}

// UpdateMemoHandler edits the free-text fields of an open memo. The numeric
// snapshots are system-maintained and not editable here.
func UpdateMemoHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid memo id")
		}
		var body UpdateMemoRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		var m models.OverBudgetMemo
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&m, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "memo not found")
				}
				return err
			}
			if m.Confirmed {
				return fiber.NewError(fiber.StatusConflict, "confirmed memos cannot be edited")
			}

			if body.Reason != nil {
				if err := tx.Model(&models.OverBudgetMemo{}).Where("id = ?", m.ID).
					Update("reason", *body.Reason).Error; err != nil {
					return err
				}
			}
			for _, in := range body.Lines {
				res := tx.Model(&models.MemoLine{}).
					Where("id = ? AND memo_id = ?", in.ID, m.ID).
					Update("description", in.Description)
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return fiber.NewError(fiber.StatusBadRequest, "memo line not found on this memo")
				}
			}
			return tx.Preload("Lines").First(&m, m.ID).Error
		})
		if err != nil {
			return err
		}
		return c.JSON(m)
	}
}

// ConfirmMemoHandler approves the memo and raises the covered budget lines.
func ConfirmMemoHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid memo id")
		}

		var m *models.OverBudgetMemo
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var txErr error
			m, txErr = ConfirmMemo(tx, uint(id), time.Now())
			return txErr
		})
		if err != nil {
			return err
		}

		userID, userName := auth.UserInfo(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID: userID, UserName: userName,
			EntityType: "memo", EntityID: m.ID,
			Action:      models.AuditActionConfirm,
			Description: "Over-budget memo confirmed: " + m.Number,
			After:       m,
		})
		return c.JSON(m)
	}
}
