package budget

import (
	"errors"

	"budget-backend/internal/database"
	"budget-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// PreviewItem is a candidate budget item built from a template. It is
// assembled in memory for display and never persisted.
type PreviewItem struct {
	Name        string        `json:"name"`
	Type        string        `json:"type"`
	CheckDetail bool          `json:"check_detail"`
	Children    []PreviewItem `json:"children,omitempty"`
}

// BuildPreview assembles the item tree a template would produce.
func BuildPreview(tmpl *models.BudgetTemplate) []PreviewItem {
	childDetails := make(map[uint][]models.TemplateDetail)
	var roots []models.TemplateDetail
	for _, d := range tmpl.Details {
		if d.ParentID == nil {
			roots = append(roots, d)
		} else {
			childDetails[*d.ParentID] = append(childDetails[*d.ParentID], d)
		}
	}

	out := make([]PreviewItem, 0, len(roots))
	for _, r := range roots {
		item := PreviewItem{Name: r.Name, Type: r.Type, CheckDetail: r.CheckDetail}
		for _, ch := range childDetails[r.ID] {
			item.Children = append(item.Children, PreviewItem{
				Name: ch.Name, Type: ch.Type, CheckDetail: ch.CheckDetail,
			})
		}
		out = append(out, item)
	}
	return out
}

func PreviewTemplateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid template id")
		}
		var tmpl models.BudgetTemplate
		if err := database.DB.Preload("Details").First(&tmpl, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "budget template not found")
			}
			return err
		}
		return c.JSON(fiber.Map{"items": BuildPreview(&tmpl)})
	}
}
