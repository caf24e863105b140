package models

// Sequence backs record numbering for budgets, budget items and memos.
// Numbers are monotonic per code; concurrent generation relies on the
// enclosing transaction's isolation.
type Sequence struct {
	ID   uint   `gorm:"primaryKey"`
	Code string `gorm:"size:50;uniqueIndex;not null"`
	Next int64  `gorm:"not null;default:1"`
}
