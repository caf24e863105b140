package purchase

import (
	"errors"
	"fmt"
	"time"

	"budget-backend/internal/database"
	"budget-backend/internal/models"
	"budget-backend/internal/sequence"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateInvoiceRequest struct {
	OrderID      uint    `json:"order_id"`
	Amount       float64 `json:"amount"`
	PaymentState string  `json:"payment_state"`
}

type UpdateInvoiceRequest struct {
	Amount       *float64 `json:"amount"`
	PaymentState *string  `json:"payment_state"`
}

var paymentStates = map[models.PaymentState]bool{
	models.PaymentNotPaid: true,
	models.PaymentPartial: true,
	models.PaymentPaid:    true,
}

func CreateInvoiceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateInvoiceRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.OrderID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "order_id is required")
		}
		state := models.PaymentNotPaid
		if body.PaymentState != "" {
			state = models.PaymentState(body.PaymentState)
			if !paymentStates[state] {
				return fiber.NewError(fiber.StatusBadRequest, "invalid payment_state: "+body.PaymentState)
			}
		}

		var inv models.Invoice
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			var order models.PurchaseOrder
			if err := tx.First(&order, body.OrderID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusBadRequest, "purchase order not found")
				}
				return err
			}

			seq, err := sequence.Next(tx, sequence.CodeInvoice)
			if err != nil {
				return err
			}
			inv = models.Invoice{
				OrderID:      order.ID,
				Number:       fmt.Sprintf("INV/%s/%d", seq, time.Now().Year()),
				Amount:       body.Amount,
				PaymentState: state,
			}
			if err := tx.Create(&inv).Error; err != nil {
				return err
			}

			if state == models.PaymentPaid {
				return RecomputeOrderChains(tx, order.ID)
			}
			return nil
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(inv)
	}
}

func UpdateInvoiceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid invoice id")
		}
		var body UpdateInvoiceRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		var inv models.Invoice
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&inv, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "invoice not found")
				}
				return err
			}

			paymentChanged := false
			if body.Amount != nil {
				inv.Amount = *body.Amount
			}
			if body.PaymentState != nil {
				state := models.PaymentState(*body.PaymentState)
				if !paymentStates[state] {
					return fiber.NewError(fiber.StatusBadRequest, "invalid payment_state: "+*body.PaymentState)
				}
				paymentChanged = state != inv.PaymentState
				inv.PaymentState = state
			}
			if err := tx.Save(&inv).Error; err != nil {
				return err
			}

			// Payment flips move lines in or out of the actual aggregate.
			if paymentChanged {
				return RecomputeOrderChains(tx, inv.OrderID)
			}
			return nil
		})
		if err != nil {
			return err
		}
		return c.JSON(inv)
	}
}

func ListInvoicesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Order("id DESC")
		if orderID := c.QueryInt("order_id"); orderID > 0 {
			q = q.Where("order_id = ?", orderID)
		}
		var invoices []models.Invoice
		if err := q.Find(&invoices).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "invoices could not be listed")
		}
		return c.JSON(invoices)
	}
}
