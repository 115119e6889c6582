package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/stoir-api/internal/application/dbtools"
	"github.com/jhoicas/stoir-api/internal/application/inventory"
	"github.com/jhoicas/stoir-api/pkg/logger"
	"github.com/jhoicas/stoir-api/pkg/metrics"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine   *inventory.LedgerEngine
	DBTools  *dbtools.Service
	Metrics  *metrics.Metrics
	Log      *logger.Logger
	Provider string
	AppName  string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Log != nil {
		app.Use(RequestLogger(deps.Log))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName, "provider": deps.Provider})
	})
	app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))

	api := app.Group("/api")

	// Documentos de movimiento
	inventoryHandler := NewInventoryHandler(deps.Engine)
	movements := api.Group("/movements")
	movements.Post("/:kind", inventoryHandler.ApplyMovement)
	movements.Get("/:kind/:number", inventoryHandler.GetDocument)

	// Artículos y kardex
	items := api.Group("/items")
	items.Get("/reorder", inventoryHandler.GetReorderList)
	items.Get("/:code/ledger.xlsx", inventoryHandler.ExportLedger)
	items.Get("/:code/ledger", inventoryHandler.GetLedger)
	items.Get("/:code/verify", inventoryHandler.VerifyItem)
	api.Get("/ledger/verify", inventoryHandler.VerifyAll)

	// Administración de la base
	dbHandler := NewDBToolsHandler(deps.DBTools)
	admin := api.Group("/admin/db")
	admin.Get("/info", dbHandler.Info)
	admin.Get("/backup", dbHandler.Backup)
	admin.Post("/restore", dbHandler.Restore)
	admin.Post("/reset", dbHandler.Reset)
	admin.Post("/seed", dbHandler.Seed)
}

// RequestLogger registra método, ruta, estado y duración de cada petición.
func RequestLogger(log *logger.Logger) fiber.Handler {
	log = log.Component("http")
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		ev := log.Debug()
		if status >= fiber.StatusInternalServerError {
			ev = log.Warn()
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("elapsed", time.Since(start)).
			Msg("petición atendida")
		return err
	}
}
