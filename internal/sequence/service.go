package sequence

import (
	"errors"
	"fmt"

	"budget-backend/internal/models"

	"gorm.io/gorm"
)

// Codes used by the record-number generators.
const (
	CodeBudget     = "budget"
	CodeBudgetItem = "budget_item"
	CodeMemo       = "memo_over_budget"
	CodePurchase   = "purchase_order"
	CodeInvoice    = "invoice"
)

// Next returns the next number for a code, zero-padded to four digits.
// The counter is a plain read-modify-write inside the caller's transaction;
// uniqueness under concurrency comes from the store's isolation level.
func Next(tx *gorm.DB, code string) (string, error) {
	var seq models.Sequence
	err := tx.Where("code = ?", code).First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		seq = models.Sequence{Code: code, Next: 1}
		if err := tx.Create(&seq).Error; err != nil {
			return "", fmt.Errorf("sequence %s could not be created: %w", code, err)
		}
	} else if err != nil {
		return "", err
	}

	n := seq.Next
	if err := tx.Model(&models.Sequence{}).Where("id = ?", seq.ID).
		Update("next", n+1).Error; err != nil {
		return "", fmt.Errorf("sequence %s could not be advanced: %w", code, err)
	}
	return fmt.Sprintf("%04d", n), nil
}
