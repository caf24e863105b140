package catalog

import (
	"errors"

	"budget-backend/internal/database"
	"budget-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateProductRequest struct {
	Name          string  `json:"name"`
	UOM           string  `json:"uom"`
	StandardPrice float64 `json:"standard_price"`
}

type UpdateProductRequest struct {
	Name          *string  `json:"name"`
	UOM           *string  `json:"uom"`
	StandardPrice *float64 `json:"standard_price"`
}

type CreateVendorRequest struct {
	VendorName string  `json:"vendor_name"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
}

type CurrencyRateRequest struct {
	Currency string  `json:"currency"`
	Rate     float64 `json:"rate"`
}

func CreateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.Name == "" || body.UOM == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name and uom are required")
		}

		product := models.Product{
			Name:          body.Name,
			UOM:           body.UOM,
			StandardPrice: body.StandardPrice,
		}
		if err := database.DB.Create(&product).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "product could not be created")
		}
		return c.Status(fiber.StatusCreated).JSON(product)
	}
}

func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var products []models.Product
		if err := database.DB.Order("name ASC").Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "products could not be listed")
		}
		return c.JSON(products)
	}
}

func UpdateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
		}
		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		var product models.Product
		if err := database.DB.First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "product not found")
			}
			return err
		}
		if body.Name != nil {
			product.Name = *body.Name
		}
		if body.UOM != nil {
			product.UOM = *body.UOM
		}
		if body.StandardPrice != nil {
			product.StandardPrice = *body.StandardPrice
		}
		if err := database.DB.Save(&product).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "product could not be updated")
		}
		return c.JSON(product)
	}
}

func DeleteProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
		}

		// A product referenced by budget or purchase lines stays.
		var refs int64
		if err := database.DB.Model(&models.BudgetLine{}).Where("product_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs == 0 {
			if err := database.DB.Model(&models.PurchaseOrderLine{}).Where("product_id = ?", id).Count(&refs).Error; err != nil {
				return err
			}
		}
		if refs > 0 {
			return fiber.NewError(fiber.StatusConflict, "product is referenced by budget or purchase lines")
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("product_id = ?", id).Delete(&models.ProductVendor{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Product{}, id).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "product could not be deleted")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func CreateProductVendorHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		productID, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
		}
		var body CreateVendorRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.VendorName == "" || body.Currency == "" {
			return fiber.NewError(fiber.StatusBadRequest, "vendor_name and currency are required")
		}

		var product models.Product
		if err := database.DB.First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "product not found")
			}
			return err
		}

		vendor := models.ProductVendor{
			ProductID:  product.ID,
			VendorName: body.VendorName,
			Price:      body.Price,
			Currency:   body.Currency,
		}
		if err := database.DB.Create(&vendor).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "vendor offer could not be created")
		}
		return c.Status(fiber.StatusCreated).JSON(vendor)
	}
}

func ListProductVendorsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		productID, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
		}
		var vendors []models.ProductVendor
		if err := database.DB.Where("product_id = ?", productID).Order("price DESC").Find(&vendors).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "vendor offers could not be listed")
		}
		return c.JSON(vendors)
	}
}

func DeleteProductVendorHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid vendor offer id")
		}
		if err := database.DB.Delete(&models.ProductVendor{}, id).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "vendor offer could not be deleted")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// UpsertCurrencyRateHandler creates or replaces the rate for one currency.
func UpsertCurrencyRateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CurrencyRateRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.Currency == "" {
			return fiber.NewError(fiber.StatusBadRequest, "currency is required")
		}
		if body.Rate <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "rate must be positive")
		}

		var rate models.CurrencyRate
		err := database.DB.Where("currency = ?", body.Currency).First(&rate).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			rate = models.CurrencyRate{Currency: body.Currency, Rate: body.Rate}
			if err := database.DB.Create(&rate).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "currency rate could not be created")
			}
			return c.Status(fiber.StatusCreated).JSON(rate)
		}
		if err != nil {
			return err
		}

		rate.Rate = body.Rate
		if err := database.DB.Save(&rate).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "currency rate could not be updated")
		}
		return c.JSON(rate)
	}
}

func ListCurrencyRatesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var rates []models.CurrencyRate
		if err := database.DB.Order("currency ASC").Find(&rates).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "currency rates could not be listed")
		}
		return c.JSON(rates)
	}
}
