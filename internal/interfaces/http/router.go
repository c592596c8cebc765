package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/registre-pyro/registre-api/internal/application/auth"
	"github.com/registre-pyro/registre-api/internal/application/sales"
	"github.com/registre-pyro/registre-api/internal/domain/entity"
)

// RouterDeps dépendances du routeur.
type RouterDeps struct {
	AuthUC    *auth.AuthUseCase
	SaleUC    *sales.UseCase
	PDF       RegisterPDFGenerator
	Admin     AdminFacade
	JWTSecret string
	Location  *time.Location
	// Gatherer source des métriques exposées sur /metrics ; registre par défaut si nil.
	Gatherer prometheus.Gatherer
}

// Router enregistre les routes de l'API.
func Router(app *fiber.App, deps RouterDeps) {
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := app.Group("/api")

	// Auth (public)
	authHandler := NewAuthHandler(deps.AuthUC)
	api.Post("/auth/login", authHandler.Login)

	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	anyRole := RequireRole(entity.RoleAdmin, entity.RoleGerant, entity.RoleVendeur)
	managers := RequireRole(entity.RoleAdmin, entity.RoleGerant)
	adminOnly := RequireRole(entity.RoleAdmin)

	// Registre des ventes
	saleHandler := NewSaleHandler(deps.SaleUC)
	salesGroup := protected.Group("/sales")
	salesGroup.Post("/", anyRole, saleHandler.Create)
	salesGroup.Get("/", anyRole, saleHandler.List)
	salesGroup.Get("/:id", anyRole, saleHandler.GetByID)
	salesGroup.Get("/:id/photos/:kind", anyRole, saleHandler.Photo)
	salesGroup.Delete("/:id", managers, saleHandler.Delete)

	// Exports
	exportHandler := NewExportHandler(deps.SaleUC, deps.PDF, deps.Location)
	exports := protected.Group("/exports", managers)
	exports.Get("/sales.csv", exportHandler.CSV)
	exports.Get("/sales.pdf", exportHandler.PDF)

	// Administration
	adminGroup := protected.Group("/admin", adminOnly)
	adminGroup.Post("/users", authHandler.Register)
	RegisterAdminRoutes(adminGroup, NewAdminHandler(deps.Admin))
}

// RegisterAdminRoutes monte les routes sauvegarde/purge/planificateur sur r.
func RegisterAdminRoutes(r fiber.Router, h *AdminHandler) {
	r.Get("/backups", h.ListBackups)
	r.Post("/backups", h.CreateBackup)
	r.Get("/backups/stats", h.BackupStats)
	r.Post("/backups/restore", h.Restore)
	r.Get("/backups/export.json", h.ExportJSON)
	r.Get("/purge/stats", h.PurgeStats)
	r.Post("/purge", h.Purge)
	r.Get("/scheduler", h.Scheduler)
}
