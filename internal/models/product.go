package models

import "time"

type Product struct {
	ID            uint    `gorm:"primaryKey"`
	Name          string  `gorm:"size:150;not null;unique"`
	UOM           string  `gorm:"size:20;not null"` // pcs, kg, set, license...
	StandardPrice float64 `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProductVendor is a vendor offer for a product. Budget line prices default
// to the highest vendor offer, converted to the budget currency.
type ProductVendor struct {
	ID         uint    `gorm:"primaryKey"`
	ProductID  uint    `gorm:"index;not null"`
	VendorName string  `gorm:"size:150;not null"`
	Price      float64 `gorm:"not null"`
	Currency   string  `gorm:"size:10;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
