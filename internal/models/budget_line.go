package models

import "time"

// BudgetLine is the planned quantity/price for one product under a leaf
// budget item. InitialQtyPlan/InitialUnitPrice are captured at creation and
// never change afterwards; QtyPlan/UnitPrice are the working plan, raised by
// the memo workflow and reconciled back toward the initial baseline when
// committed purchases fall away.
type BudgetLine struct {
	ID        uint   `gorm:"primaryKey"`
	ItemID    uint   `gorm:"index;not null"`
	ProductID uint   `gorm:"index;not null"`
	Product   Product
	Name      string `gorm:"size:150"`
	UOM       string `gorm:"size:20"`

	QtyPlan          float64 `gorm:"not null"`
	InitialQtyPlan   float64 `gorm:"not null"`
	UnitPrice        float64 `gorm:"not null"`
	InitialUnitPrice float64 `gorm:"not null"`

	// Derived fields, maintained by the rollup engine.
	QtyUsed   float64 `gorm:"not null;default:0"`
	QtyRemain float64 `gorm:"not null;default:0"`
	Subtotal  float64 `gorm:"not null;default:0"`

	Remark    string `gorm:"size:255"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
