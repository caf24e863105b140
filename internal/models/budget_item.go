package models

import "time"

// BudgetItem is one node of the budget hierarchy (one level of nesting:
// top-level parents and their children). A node with children aggregates,
// a node without children plans through its BudgetLines.
type BudgetItem struct {
	ID          uint   `gorm:"primaryKey"`
	BudgetID    uint   `gorm:"index;not null"`
	Code        string `gorm:"size:50;index"`
	Name        string `gorm:"size:150;not null"`
	DisplayName string `gorm:"size:200"`
	Type        string `gorm:"size:50;not null"`
	CheckDetail bool   `gorm:"not null;default:false"`
	ParentID    *uint  `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Derived fields, maintained by the rollup engine. Never edited directly.
	BudgetPlan float64 `gorm:"not null;default:0"`
	Request    float64 `gorm:"not null;default:0"`
	Remaining  float64 `gorm:"not null;default:0"`
	Actual     float64 `gorm:"not null;default:0"`
	OverBudget float64 `gorm:"not null;default:0"`

	Children []BudgetItem `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE"`
	Lines    []BudgetLine `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
}
