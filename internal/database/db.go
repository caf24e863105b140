package database

import (
	"log"

	"budget-backend/internal/config"
	"budget-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	log.Println("database connected, migration complete")
}

// Migrate creates or updates the schema. Shared with the test suites, which
// run it against an in-memory database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Sequence{},
		&models.Product{},
		&models.ProductVendor{},
		&models.CurrencyRate{},
		&models.BudgetTemplate{},
		&models.TemplateDetail{},
		&models.Budget{},
		&models.BudgetItem{},
		&models.BudgetLine{},
		&models.PurchaseOrder{},
		&models.PurchaseOrderLine{},
		&models.Invoice{},
		&models.OverBudgetMemo{},
		&models.MemoLine{},
		&models.AuditLog{},
	)
}
