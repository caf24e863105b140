package budget

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"budget-backend/internal/models"

	"gorm.io/gorm"
)

func displayName(code, name string) string {
	if code == "" {
		return name
	}
	return code + " - " + name
}

// nextItemCode continues the item numbering scheme: top-level items step by
// 100 (0100, 0200, ...), children count up from their parent's number
// (0101, 0102, ...). The prefix is the budget number's first segment.
func nextItemCode(tx *gorm.DB, b *models.Budget, parentID *uint) (string, error) {
	prefix := "0000"
	if b.BudgetNumber != "" {
		prefix = strings.SplitN(b.BudgetNumber, "/", 2)[0]
	}

	if parentID == nil {
		var last models.BudgetItem
		err := tx.Where("budget_id = ? AND parent_id IS NULL", b.ID).
			Order("code DESC").First(&last).Error
		num := 100
		if err == nil && last.Code != "" {
			if n, perr := lastCodeNumber(last.Code); perr == nil {
				num = n + 100
			}
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
		return fmt.Sprintf("%s/RAB-FO-%04d", prefix, num), nil
	}

	var parent models.BudgetItem
	if err := tx.First(&parent, *parentID).Error; err != nil {
		return "", err
	}
	parentNum, err := lastCodeNumber(parent.Code)
	if err != nil {
		parentNum = 0
	}

	var last models.BudgetItem
	findErr := tx.Where("parent_id = ?", parent.ID).Order("code DESC").First(&last).Error
	num := parentNum + 1
	if findErr == nil && last.Code != "" {
		if n, perr := lastCodeNumber(last.Code); perr == nil {
			num = n + 1
		}
	} else if findErr != nil && !errors.Is(findErr, gorm.ErrRecordNotFound) {
		return "", findErr
	}
	return fmt.Sprintf("%s/RAB-FO-%04d", prefix, num), nil
}

func lastCodeNumber(code string) (int, error) {
	parts := strings.Split(code, "-")
	return strconv.Atoi(parts[len(parts)-1])
}
