package pricing

import (
	"errors"
	"fmt"

	"budget-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultUnitPrice returns the highest vendor offer for a product converted
// to the target currency, falling back to the product's standard price when
// no vendor offers exist. Budget lines use it when created without an
// explicit price.
func DefaultUnitPrice(tx *gorm.DB, productID uint, currency string) (float64, error) {
	var vendors []models.ProductVendor
	if err := tx.Where("product_id = ?", productID).Find(&vendors).Error; err != nil {
		return 0, err
	}
	if len(vendors) == 0 {
		var product models.Product
		if err := tx.First(&product, productID).Error; err != nil {
			return 0, err
		}
		return product.StandardPrice, nil
	}

	best := 0.0
	for _, v := range vendors {
		converted, err := Convert(tx, v.Price, v.Currency, currency)
		if err != nil {
			return 0, err
		}
		if converted > best {
			best = converted
		}
	}
	return best, nil
}

// Convert converts an amount between currencies through the stored rates.
// A rate row holds units of the reporting base per one unit of its currency.
func Convert(tx *gorm.DB, amount float64, from, to string) (float64, error) {
	if from == to {
		return amount, nil
	}
	fromRate, err := rate(tx, from)
	if err != nil {
		return 0, err
	}
	toRate, err := rate(tx, to)
	if err != nil {
		return 0, err
	}
	return decimal.NewFromFloat(amount).Mul(fromRate).Div(toRate).InexactFloat64(), nil
}

func rate(tx *gorm.DB, currency string) (decimal.Decimal, error) {
	var r models.CurrencyRate
	err := tx.Where("currency = ?", currency).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Decimal{}, fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("no conversion rate for currency %q", currency))
	}
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromFloat(r.Rate), nil
}
