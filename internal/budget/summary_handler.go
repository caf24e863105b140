package budget

import (
	"errors"

	"budget-backend/internal/database"
	"budget-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type LineSummary struct {
	ID        uint    `json:"id"`
	ProductID uint    `json:"product_id"`
	Name      string  `json:"name"`
	UOM       string  `json:"uom"`
	QtyPlan   float64 `json:"qty_plan"`
	UnitPrice float64 `json:"unit_price"`
	QtyUsed   float64 `json:"qty_used"`
	QtyRemain float64 `json:"qty_remain"`
	Subtotal  float64 `json:"subtotal"`
}

type ItemSummary struct {
	ID          uint          `json:"id"`
	Code        string        `json:"code"`
	DisplayName string        `json:"display_name"`
	Type        string        `json:"type"`
	BudgetPlan  float64       `json:"budget_plan"`
	Request     float64       `json:"request"`
	Remaining   float64       `json:"remaining"`
	Actual      float64       `json:"actual"`
	OverBudget  float64       `json:"over_budget"`
	Lines       []LineSummary `json:"lines,omitempty"`
	Children    []ItemSummary `json:"children,omitempty"`
}

type BudgetSummaryResponse struct {
	ID           uint          `json:"id"`
	BudgetNumber string        `json:"budget_number"`
	BudgetType   string        `json:"budget_type"`
	Currency     string        `json:"currency"`
	Items        []ItemSummary `json:"items"`
}

// BudgetSummaryHandler returns the full item tree with the rolled-up figures.
func BudgetSummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid budget id")
		}

		var b models.Budget
		if err := database.DB.First(&b, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "budget not found")
			}
			return err
		}

		var items []models.BudgetItem
		if err := database.DB.Preload("Lines").
			Where("budget_id = ?", b.ID).Order("code ASC").
			Find(&items).Error; err != nil {
			return err
		}

		byParent := make(map[uint][]models.BudgetItem)
		var roots []models.BudgetItem
		for _, it := range items {
			if it.ParentID == nil {
				roots = append(roots, it)
			} else {
				byParent[*it.ParentID] = append(byParent[*it.ParentID], it)
			}
		}

		resp := BudgetSummaryResponse{
			ID:           b.ID,
			BudgetNumber: b.BudgetNumber,
			BudgetType:   b.BudgetType,
			Currency:     b.Currency,
			Items:        make([]ItemSummary, 0, len(roots)),
		}
		for _, root := range roots {
			s := itemSummary(root)
			for _, child := range byParent[root.ID] {
				s.Children = append(s.Children, itemSummary(child))
			}
			resp.Items = append(resp.Items, s)
		}
		return c.JSON(resp)
	}
}

func itemSummary(it models.BudgetItem) ItemSummary {
	s := ItemSummary{
		ID:          it.ID,
		Code:        it.Code,
		DisplayName: it.DisplayName,
		Type:        it.Type,
		BudgetPlan:  it.BudgetPlan,
		Request:     it.Request,
		Remaining:   it.Remaining,
		Actual:      it.Actual,
		OverBudget:  it.OverBudget,
	}
	for _, ln := range it.Lines {
		s.Lines = append(s.Lines, LineSummary{
			ID:        ln.ID,
			ProductID: ln.ProductID,
			Name:      ln.Name,
			UOM:       ln.UOM,
			QtyPlan:   ln.QtyPlan,
			UnitPrice: ln.UnitPrice,
			QtyUsed:   ln.QtyUsed,
			QtyRemain: ln.QtyRemain,
			Subtotal:  ln.Subtotal,
		})
	}
	return s
}
