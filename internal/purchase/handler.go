package purchase

import (
	"errors"
	"fmt"
	"time"

	"budget-backend/internal/audit"
	"budget-backend/internal/auth"
	"budget-backend/internal/budget"
	"budget-backend/internal/database"
	"budget-backend/internal/models"
	"budget-backend/internal/sequence"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type PurchaseLineInput struct {
	ProductID    uint    `json:"product_id"`
	BudgetItemID *uint   `json:"budget_item_id"`
	Qty          float64 `json:"qty"`
	UnitPrice    float64 `json:"unit_price"`
}

type CreatePurchaseOrderRequest struct {
	VendorName string              `json:"vendor_name"`
	Date       string              `json:"date"` // "2025-03-15"
	Lines      []PurchaseLineInput `json:"lines"`
}

type UpdatePurchaseOrderStateRequest struct {
	State string `json:"state"`
}

var purchaseStates = map[models.PurchaseState]bool{
	models.PurchaseDraft:     true,
	models.PurchaseSent:      true,
	models.PurchaseToApprove: true,
	models.PurchaseConfirmed: true,
	models.PurchaseDone:      true,
	models.PurchaseCancelled: true,
}

// validateLeafItem ensures a purchase line points at a planning (leaf) item.
func validateLeafItem(tx *gorm.DB, itemID uint) error {
	var item models.BudgetItem
	if err := tx.First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, "budget item not found")
		}
		return err
	}
	var childCount int64
	if err := tx.Model(&models.BudgetItem{}).Where("parent_id = ?", itemID).Count(&childCount).Error; err != nil {
		return err
	}
	if childCount > 0 {
		return fiber.NewError(fiber.StatusBadRequest, "purchase lines must reference a budget item without children")
	}
	return nil
}

func CreatePurchaseOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreatePurchaseOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		date := time.Now()
		if body.Date != "" {
			parsed, err := time.Parse("2006-01-02", body.Date)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			}
			date = parsed
		}

		var order models.PurchaseOrder
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			seq, err := sequence.Next(tx, sequence.CodePurchase)
			if err != nil {
				return err
			}
			order = models.PurchaseOrder{
				Number:     fmt.Sprintf("PO/%s/%d", seq, date.Year()),
				VendorName: body.VendorName,
				Date:       date,
				State:      models.PurchaseDraft,
			}
			if err := tx.Create(&order).Error; err != nil {
				return err
			}

			for _, in := range body.Lines {
				if in.ProductID == 0 {
					return fiber.NewError(fiber.StatusBadRequest, "purchase line product_id is required")
				}
				line := models.PurchaseOrderLine{
					OrderID:      order.ID,
					ProductID:    in.ProductID,
					BudgetItemID: in.BudgetItemID,
					Qty:          in.Qty,
					UnitPrice:    in.UnitPrice,
					Subtotal:     in.Qty * in.UnitPrice,
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
			}
			return RefreshOrderFlags(tx, order.ID)
		})
		if err != nil {
			return err
		}

		database.DB.Preload("Lines").First(&order, order.ID)
		return c.Status(fiber.StatusCreated).JSON(order)
	}
}

func ListPurchaseOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Preload("Lines").Order("id DESC")
		if state := c.Query("state"); state != "" {
			q = q.Where("state = ?", state)
		}
		var orders []models.PurchaseOrder
		if err := q.Find(&orders).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "purchase orders could not be listed")
		}
		return c.JSON(orders)
	}
}

func GetPurchaseOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid purchase order id")
		}
		var order models.PurchaseOrder
		if err := database.DB.Preload("Lines").Preload("Invoices").First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "purchase order not found")
			}
			return err
		}
		return c.JSON(order)
	}
}

// CanFinalizeHandler exposes the confirm gate without side effects.
func CanFinalizeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid purchase order id")
		}
		var order models.PurchaseOrder
		if err := database.DB.First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "purchase order not found")
			}
			return err
		}
		ok, err := CanFinalize(database.DB, &order)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"can_finalize": ok})
	}
}

// ConfirmPurchaseOrderHandler moves an order into the committed set. Blocked
// while any line is over budget without a confirmed memo. On success the
// affected budget line baselines are reconciled and the tree recomputed.
func ConfirmPurchaseOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid purchase order id")
		}

		var order models.PurchaseOrder
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&order, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "purchase order not found")
				}
				return err
			}
			if order.State.Committed() {
				return fiber.NewError(fiber.StatusConflict, "purchase order is already confirmed")
			}
			if order.State == models.PurchaseCancelled {
				return fiber.NewError(fiber.StatusBadRequest, "cancelled purchase orders cannot be confirmed")
			}

			ok, err := CanFinalize(tx, &order)
			if err != nil {
				return err
			}
			if !ok {
				return ErrMemoRequired
			}

			if err := tx.Model(&models.PurchaseOrder{}).Where("id = ?", order.ID).
				Update("state", models.PurchaseConfirmed).Error; err != nil {
				return err
			}
			order.State = models.PurchaseConfirmed
			return ReconcileOrder(tx, order.ID)
		})
		if err != nil {
			return err
		}

		userID, userName := auth.UserInfo(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID: userID, UserName: userName,
			EntityType: "purchase_order", EntityID: order.ID,
			Action:      models.AuditActionConfirm,
			Description: "Purchase order confirmed: " + order.Number,
			After:       order,
		})

		database.DB.Preload("Lines").First(&order, order.ID)
		return c.JSON(order)
	}
}

// UpdatePurchaseOrderStateHandler handles the remaining lifecycle moves
// (sent, to_approve, done, cancel, back to draft). Entering the committed set
// goes through the same gate as confirm; leaving it reconciles the baselines
// back toward their floors.
func UpdatePurchaseOrderStateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid purchase order id")
		}
		var body UpdatePurchaseOrderStateRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		newState := models.PurchaseState(body.State)
		if !purchaseStates[newState] {
			return fiber.NewError(fiber.StatusBadRequest, "invalid purchase order state: "+body.State)
		}

		var order models.PurchaseOrder
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&order, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "purchase order not found")
				}
				return err
			}
			oldState := order.State
			if oldState == newState {
				return nil
			}

			if newState.Committed() && !oldState.Committed() {
				ok, err := CanFinalize(tx, &order)
				if err != nil {
					return err
				}
				if !ok {
					return ErrMemoRequired
				}
			}

			if err := tx.Model(&models.PurchaseOrder{}).Where("id = ?", order.ID).
				Update("state", newState).Error; err != nil {
				return err
			}
			order.State = newState

			if oldState.Committed() != newState.Committed() {
				return ReconcileOrder(tx, order.ID)
			}
			return nil
		})
		if err != nil {
			return err
		}
		return c.JSON(order)
	}
}

// DeletePurchaseOrderHandler removes an order and everything hanging off it,
// then reconciles the budget lines its lines were consuming.
func DeletePurchaseOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid purchase order id")
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var order models.PurchaseOrder
			if err := tx.Preload("Lines").First(&order, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "purchase order not found")
				}
				return err
			}

			type pair struct{ itemID, productID uint }
			seen := make(map[pair]bool)
			var pairs []pair
			for _, ln := range order.Lines {
				if ln.BudgetItemID == nil {
					continue
				}
				p := pair{*ln.BudgetItemID, ln.ProductID}
				if !seen[p] {
					seen[p] = true
					pairs = append(pairs, p)
				}
			}

			if err := tx.Where("order_id = ?", order.ID).Delete(&models.OverBudgetMemo{}).Error; err != nil {
				return err
			}
			if err := tx.Where("order_id = ?", order.ID).Delete(&models.PurchaseOrderLine{}).Error; err != nil {
				return err
			}
			if err := tx.Where("order_id = ?", order.ID).Delete(&models.Invoice{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&order).Error; err != nil {
				return err
			}

			for _, p := range pairs {
				if err := ReconcileBudgetLines(tx, p.itemID, p.productID); err != nil {
					return err
				}
				if err := budget.RecomputeChain(tx, p.itemID); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
