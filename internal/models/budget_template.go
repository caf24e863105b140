package models

import "time"

type BudgetTemplateType string

const (
	TemplateProject     BudgetTemplateType = "project"
	TemplateMaintenance BudgetTemplateType = "maintenance"
	TemplateICT         BudgetTemplateType = "ict"
	TemplateInvestment  BudgetTemplateType = "investment"
	TemplateDepartment  BudgetTemplateType = "department"
)

type BudgetTemplate struct {
	ID        uint               `gorm:"primaryKey"`
	Name      string             `gorm:"size:150;not null"`
	Type      BudgetTemplateType `gorm:"size:20"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Details []TemplateDetail `gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE"`
}

// TemplateDetail mirrors the item tree shape: details without a parent become
// top-level items, details with a parent become their children.
type TemplateDetail struct {
	ID          uint   `gorm:"primaryKey"`
	TemplateID  uint   `gorm:"index;not null"`
	Sequence    string `gorm:"size:20"`
	Name        string `gorm:"size:150;not null"`
	Type        string `gorm:"size:50;not null"`
	ParentID    *uint  `gorm:"index"`
	CheckDetail bool   `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Children []TemplateDetail `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE"`
}
