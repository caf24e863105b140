package models

import "time"

// BreachType classifies how a purchase line exceeds its budget lines.
type BreachType string

const (
	BreachNone     BreachType = "none"
	BreachQuantity BreachType = "quantity"
	BreachPrice    BreachType = "price"
	BreachBoth     BreachType = "both"
)

// OverBudgetMemo is the approval record gating confirmation of an over-budget
// purchase order. Confirmation is terminal: the memo becomes historical record
// and a later breach on the same order starts a fresh memo cycle.
type OverBudgetMemo struct {
	ID          uint      `gorm:"primaryKey"`
	Number      string    `gorm:"size:50;uniqueIndex;not null"`
	OrderID     uint      `gorm:"index;not null"`
	Date        time.Time `gorm:"not null"`
	Reason      string    `gorm:"size:500"`
	Confirmed   bool      `gorm:"not null;default:false"`
	ConfirmedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Lines []MemoLine `gorm:"foreignKey:MemoID;constraint:OnDelete:CASCADE"`
}

// MemoLine snapshots one breaching purchase line against its budget at
// detection time.
type MemoLine struct {
	ID             uint   `gorm:"primaryKey"`
	MemoID         uint   `gorm:"index;not null"`
	PurchaseLineID uint   `gorm:"index;not null"`
	Description    string `gorm:"size:255"`
	ProductID      uint   `gorm:"not null"`
	BudgetItemID   uint   `gorm:"not null"`

	RequestQty    float64 `gorm:"not null"`
	BudgetQty     float64 `gorm:"not null"`
	RequestPrice  float64 `gorm:"not null"`
	BudgetPrice   float64 `gorm:"not null"`
	RequestAmount float64 `gorm:"not null"`
	BudgetAmount  float64 `gorm:"not null"`
	OverAmount    float64 `gorm:"not null"`

	Breach BreachType `gorm:"size:10;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
