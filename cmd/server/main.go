package main

import (
	"log"
	"strings"

	"budget-backend/internal/audit"
	"budget-backend/internal/auth"
	"budget-backend/internal/budget"
	"budget-backend/internal/catalog"
	"budget-backend/internal/config"
	"budget-backend/internal/database"
	"budget-backend/internal/memo"
	"budget-backend/internal/models"
	"budget-backend/internal/purchase"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Unexpected error:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "unexpected server error",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Admin routes: catalog and rate management
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	adminRoutes.Post("/products", catalog.CreateProductHandler())
	adminRoutes.Put("/products/:id", catalog.UpdateProductHandler())
	adminRoutes.Delete("/products/:id", catalog.DeleteProductHandler())
	adminRoutes.Post("/products/:id/vendors", catalog.CreateProductVendorHandler())
	adminRoutes.Delete("/product-vendors/:id", catalog.DeleteProductVendorHandler())
	adminRoutes.Post("/currency-rates", catalog.UpsertCurrencyRateHandler())

	// Catalog
	protected.Get("/products", catalog.ListProductsHandler())
	protected.Get("/products/:id/vendors", catalog.ListProductVendorsHandler())
	protected.Get("/currency-rates", catalog.ListCurrencyRatesHandler())

	// Budget templates
	protected.Post("/budget-templates", budget.CreateTemplateHandler())
	protected.Get("/budget-templates", budget.ListTemplatesHandler())
	protected.Get("/budget-templates/:id", budget.GetTemplateHandler())
	protected.Put("/budget-templates/:id", budget.UpdateTemplateHandler())
	protected.Delete("/budget-templates/:id", budget.DeleteTemplateHandler())
	protected.Post("/budget-templates/:id/details", budget.CreateTemplateDetailHandler())
	protected.Delete("/template-details/:id", budget.DeleteTemplateDetailHandler())
	protected.Get("/budget-templates/:id/preview", budget.PreviewTemplateHandler())

	// Budgets
	protected.Post("/budgets", budget.CreateBudgetHandler(cfg))
	protected.Get("/budgets", budget.ListBudgetsHandler())
	protected.Get("/budgets/:id", budget.GetBudgetHandler())
	protected.Put("/budgets/:id", budget.UpdateBudgetHandler())
	protected.Delete("/budgets/:id", budget.DeleteBudgetHandler())
	protected.Get("/budgets/:id/summary", budget.BudgetSummaryHandler())

	// Budget items and lines
	protected.Post("/budget-items", budget.CreateBudgetItemHandler())
	protected.Put("/budget-items/:id", budget.UpdateBudgetItemHandler())
	protected.Delete("/budget-items/:id", budget.DeleteBudgetItemHandler())
	protected.Post("/budget-lines", budget.CreateBudgetLineHandler())
	protected.Put("/budget-lines/:id", budget.UpdateBudgetLineHandler())
	protected.Delete("/budget-lines/:id", budget.DeleteBudgetLineHandler())

	// Purchase orders
	protected.Post("/purchase-orders", purchase.CreatePurchaseOrderHandler())
	protected.Get("/purchase-orders", purchase.ListPurchaseOrdersHandler())
	protected.Get("/purchase-orders/:id", purchase.GetPurchaseOrderHandler())
	protected.Delete("/purchase-orders/:id", purchase.DeletePurchaseOrderHandler())
	protected.Get("/purchase-orders/:id/can-finalize", purchase.CanFinalizeHandler())
	protected.Post("/purchase-orders/:id/confirm", purchase.ConfirmPurchaseOrderHandler())
	protected.Put("/purchase-orders/:id/state", purchase.UpdatePurchaseOrderStateHandler())
	protected.Post("/purchase-orders/:id/lines", purchase.AddPurchaseLineHandler())
	protected.Put("/purchase-lines/:id", purchase.UpdatePurchaseLineHandler())
	protected.Delete("/purchase-lines/:id", purchase.DeletePurchaseLineHandler())

	// Over-budget memos
	protected.Post("/purchase-orders/:id/memo", memo.RequestMemoHandler())
	protected.Get("/memos", memo.ListMemosHandler())
	protected.Get("/memos/:id", memo.GetMemoHandler())
	protected.Put("/memos/:id", memo.UpdateMemoHandler())
	protected.Post("/memos/:id/confirm", memo.ConfirmMemoHandler())

	// Invoices
	protected.Post("/invoices", purchase.CreateInvoiceHandler())
	protected.Get("/invoices", purchase.ListInvoicesHandler())
	protected.Put("/invoices/:id", purchase.UpdateInvoiceHandler())

	// Audit logs
	protected.Get("/audit-logs", audit.ListAuditLogsHandler())

	log.Println("server listening on port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
