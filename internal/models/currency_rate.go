package models

import "time"

// CurrencyRate holds the conversion rate from a currency to the reporting
// base currency (units of base per one unit of Currency).
type CurrencyRate struct {
	ID        uint    `gorm:"primaryKey"`
	Currency  string  `gorm:"size:10;uniqueIndex;not null"`
	Rate      float64 `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
