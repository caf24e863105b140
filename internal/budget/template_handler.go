package budget

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"budget-backend/internal/database"
	"budget-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateTemplateRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type UpdateTemplateRequest struct {
	Name *string `json:"name"`
	Type *string `json:"type"`
}

type CreateTemplateDetailRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	ParentID    *uint  `json:"parent_id"`
	CheckDetail bool   `json:"check_detail"`
}

var templateTypes = map[models.BudgetTemplateType]bool{
	models.TemplateProject:     true,
	models.TemplateMaintenance: true,
	models.TemplateICT:         true,
	models.TemplateInvestment:  true,
	models.TemplateDepartment:  true,
}

func CreateTemplateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateTemplateRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}
		if body.Type != "" && !templateTypes[models.BudgetTemplateType(body.Type)] {
			return fiber.NewError(fiber.StatusBadRequest, "invalid template type")
		}

		tmpl := models.BudgetTemplate{Name: body.Name, Type: models.BudgetTemplateType(body.Type)}
		if err := database.DB.Create(&tmpl).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "template could not be created")
		}
		return c.Status(fiber.StatusCreated).JSON(tmpl)
	}
}

func ListTemplatesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var templates []models.BudgetTemplate
		if err := database.DB.Order("id ASC").Find(&templates).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "templates could not be listed")
		}
		return c.JSON(templates)
	}
}

func GetTemplateHandler() fiber.Handler {
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
		return c.JSON(tmpl)
	}
}

func UpdateTemplateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid template id")
		}
		var body UpdateTemplateRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		var tmpl models.BudgetTemplate
		if err := database.DB.First(&tmpl, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "budget template not found")
			}
			return err
		}
		if body.Name != nil {
			tmpl.Name = *body.Name
		}
		if body.Type != nil {
			if !templateTypes[models.BudgetTemplateType(*body.Type)] {
				return fiber.NewError(fiber.StatusBadRequest, "invalid template type")
			}
			tmpl.Type = models.BudgetTemplateType(*body.Type)
		}
		if err := database.DB.Save(&tmpl).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "template could not be updated")
		}
		return c.JSON(tmpl)
	}
}

func DeleteTemplateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid template id")
		}
		if err := database.DB.Delete(&models.BudgetTemplate{}, id).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "template could not be deleted")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func CreateTemplateDetailHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		templateID, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid template id")
		}
		var body CreateTemplateDetailRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.Name == "" || body.Type == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name and type are required")
		}

		var detail models.TemplateDetail
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var tmpl models.BudgetTemplate
			if err := tx.First(&tmpl, templateID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "budget template not found")
				}
				return err
			}

			if body.ParentID != nil {
				var parent models.TemplateDetail
				if err := tx.First(&parent, *body.ParentID).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return fiber.NewError(fiber.StatusBadRequest, "parent detail not found")
					}
					return err
				}
				if parent.TemplateID != tmpl.ID {
					return fiber.NewError(fiber.StatusBadRequest, "parent detail belongs to another template")
				}
				if parent.ParentID != nil {
					return fiber.NewError(fiber.StatusBadRequest, "template details can only be nested one level deep")
				}
			}

			seq, err := nextDetailSequence(tx, tmpl.ID, body.ParentID)
			if err != nil {
				return err
			}
			detail = models.TemplateDetail{
				TemplateID:  tmpl.ID,
				Sequence:    seq,
				Name:        body.Name,
				Type:        body.Type,
				ParentID:    body.ParentID,
				CheckDetail: body.CheckDetail,
			}
			return tx.Create(&detail).Error
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(detail)
	}
}

func DeleteTemplateDetailHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid template detail id")
		}
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("parent_id = ?", id).Delete(&models.TemplateDetail{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.TemplateDetail{}, id).Error
		})
		if err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// nextDetailSequence mirrors the item code scheme inside a template:
// top-level details step by 100, children count up from the parent.
func nextDetailSequence(tx *gorm.DB, templateID uint, parentID *uint) (string, error) {
	if parentID == nil {
		var last models.TemplateDetail
		err := tx.Where("template_id = ? AND parent_id IS NULL", templateID).
			Order("sequence DESC").First(&last).Error
		num := 100
		if err == nil && last.Sequence != "" {
			if n, perr := strconv.Atoi(strings.TrimLeft(last.Sequence, "0")); perr == nil {
				num = n + 100
			}
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
		return fmt.Sprintf("%04d", num), nil
	}

	var parent models.TemplateDetail
	if err := tx.First(&parent, *parentID).Error; err != nil {
		return "", err
	}
	parentNum, err := strconv.Atoi(strings.TrimLeft(parent.Sequence, "0"))
	if err != nil {
		parentNum = 0
	}

	var last models.TemplateDetail
	findErr := tx.Where("parent_id = ?", parent.ID).Order("sequence DESC").First(&last).Error
	num := parentNum + 1
	if findErr == nil && last.Sequence != "" {
		if n, perr := strconv.Atoi(strings.TrimLeft(last.Sequence, "0")); perr == nil {
			num = n + 1
		}
	} else if findErr != nil && !errors.Is(findErr, gorm.ErrRecordNotFound) {
		return "", findErr
	}
	return fmt.Sprintf("%04d", num), nil
}
