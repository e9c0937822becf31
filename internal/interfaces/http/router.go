package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/labinventario-api/internal/application/inventory"
	"github.com/jhoicas/labinventario-api/pkg/logger"
	"github.com/jhoicas/labinventario-api/pkg/metrics"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger    *inventory.BatchLedgerUseCase
	Recorder  *inventory.MovementRecorderUseCase
	Snapshot  *inventory.SnapshotUseCase
	Finalizer *inventory.FinalizeUseCase
	Stock     *inventory.StockUseCase
	Reports   *inventory.ReportUseCase
	Log       *logger.Logger
	Metrics   *metrics.Metrics
	// Registry expone /metrics; nil = sin endpoint.
	Registry  *prometheus.Registry
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	app.Use(Tracing(), AccessLog(log, deps.Metrics))

	if deps.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Lotes
	batchHandler := NewBatchHandler(deps.Ledger)
	movementHandler := NewMovementHandler(deps.Recorder)
	batches := protected.Group("/batches")
	batches.Get("/", batchHandler.List)
	batches.Post("/", batchHandler.Create)
	batches.Get("/:id", batchHandler.GetByID)
	batches.Put("/:id", batchHandler.Update)
	batches.Delete("/:id", RequireRole(RoleAdmin), batchHandler.Delete)
	batches.Post("/:id/open", batchHandler.Open)
	batches.Put("/:id/quantities", RequireRole(RoleAdmin), batchHandler.ApplyQuantities)
	batches.Get("/:id/total", batchHandler.GetTotal)
	batches.Post("/:id/transfer", batchHandler.Transfer)
	batches.Post("/:id/consume", batchHandler.Consume)
	batches.Put("/:id/storage", batchHandler.SetStorage)
	batches.Put("/:id/tender", batchHandler.SetTender)
	batches.Get("/:id/movements", movementHandler.ListByBatch)

	protected.Get("/products/:productId/batches", batchHandler.ListByProduct)

	// Movimientos
	movements := protected.Group("/movements")
	movements.Get("/", movementHandler.List)
	movements.Post("/", movementHandler.Record)

	// Inventarios físicos
	inventoryHandler := NewInventoryHandler(deps.Snapshot, deps.Finalizer, deps.Reports)
	inventories := protected.Group("/inventories")
	inventories.Get("/", inventoryHandler.List)
	inventories.Post("/", inventoryHandler.Create)
	inventories.Put("/items/:itemId", inventoryHandler.RecordCount)
	inventories.Delete("/items/:itemId", inventoryHandler.RemoveItem)
	inventories.Get("/:id", inventoryHandler.Get)
	inventories.Post("/:id/batches/:batchId", inventoryHandler.AddBatch)
	inventories.Put("/:id/finalize", inventoryHandler.Finalize)
	inventories.Post("/:id/finalize", inventoryHandler.Finalize)
	inventories.Get("/:id/report", inventoryHandler.Report)

	// Stock
	stockHandler := NewStockHandler(deps.Stock)
	protected.Get("/stock", stockHandler.Consolidated)
	protected.Get("/stock/below-minimum", stockHandler.BelowMinimum)
}
