package models

import "time"

type PaymentState string

const (
	PaymentNotPaid PaymentState = "not_paid"
	PaymentPartial PaymentState = "partial"
	PaymentPaid    PaymentState = "paid"
)

// Invoice is the payment record of a purchase order. A purchase line counts
// as "actual" spend once at least one invoice of its order is fully paid.
type Invoice struct {
	ID           uint         `gorm:"primaryKey"`
	OrderID      uint         `gorm:"index;not null"`
	Number       string       `gorm:"size:50;uniqueIndex;not null"`
	Amount       float64      `gorm:"not null"`
	PaymentState PaymentState `gorm:"size:20;not null;default:not_paid"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
