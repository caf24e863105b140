package models

import "time"

type PurchaseState string

const (
	PurchaseDraft     PurchaseState = "draft"
	PurchaseSent      PurchaseState = "sent"
	PurchaseToApprove PurchaseState = "to_approve"
	PurchaseConfirmed PurchaseState = "purchase"
	PurchaseDone      PurchaseState = "done"
	PurchaseCancelled PurchaseState = "cancel"
)

// CommittedPurchaseStates are the states whose order lines count against the
// budget (request/actual aggregation and baseline reconciliation).
var CommittedPurchaseStates = []PurchaseState{PurchaseConfirmed, PurchaseDone}

func (s PurchaseState) Committed() bool {
	return s == PurchaseConfirmed || s == PurchaseDone
}

type PurchaseOrder struct {
	ID         uint          `gorm:"primaryKey"`
	Number     string        `gorm:"size:50;uniqueIndex;not null"`
	VendorName string        `gorm:"size:150"`
	Date       time.Time     `gorm:"not null"`
	State      PurchaseState `gorm:"size:20;not null;default:draft"`

	// HasOverBudget is derived from the lines' OverBudget flags. MemoDone is
	// set by memo confirmation and cleared whenever a line's qty or price is
	// edited afterwards.
	HasOverBudget bool  `gorm:"not null;default:false"`
	MemoDone      bool  `gorm:"not null;default:false"`
	MemoID        *uint `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Lines    []PurchaseOrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Invoices []Invoice           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

type PurchaseOrderLine struct {
	ID           uint `gorm:"primaryKey"`
	OrderID      uint `gorm:"index;not null"`
	ProductID    uint `gorm:"index;not null"`
	Product      Product
	BudgetItemID *uint `gorm:"index"`

	Qty       float64 `gorm:"not null"`
	UnitPrice float64 `gorm:"not null"`
	Subtotal  float64 `gorm:"not null;default:0"`

	OverBudget bool `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
