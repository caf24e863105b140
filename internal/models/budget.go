package models

import "time"

type Budget struct {
	ID           uint      `gorm:"primaryKey"`
	BudgetNumber string    `gorm:"size:100;uniqueIndex;not null"`
	Date         time.Time `gorm:"not null"`
	BudgetType   string    `gorm:"size:50;not null"`
	StartPeriod  time.Time `gorm:"not null"`
	EndPeriod    time.Time `gorm:"not null"`
	Currency     string    `gorm:"size:10;not null"`
	Notes        string    `gorm:"size:500"`
	TemplateID   *uint     `gorm:"index"`
	Template     *BudgetTemplate
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Items []BudgetItem `gorm:"constraint:OnDelete:CASCADE"`
}
