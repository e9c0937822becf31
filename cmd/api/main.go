package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/text/language"

	"github.com/jhoicas/labinventario-api/internal/application/inventory"
	"github.com/jhoicas/labinventario-api/internal/domain/repository"
	"github.com/jhoicas/labinventario-api/internal/infrastructure/catalog"
	"github.com/jhoicas/labinventario-api/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/labinventario-api/internal/infrastructure/pdf"
	"github.com/jhoicas/labinventario-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/labinventario-api/internal/interfaces/http"
	"github.com/jhoicas/labinventario-api/pkg/config"
	"github.com/jhoicas/labinventario-api/pkg/logger"
	"github.com/jhoicas/labinventario-api/pkg/metrics"
	"github.com/jhoicas/labinventario-api/pkg/tracing"
)

const (
	version     = "1.0.0"
	swaggerFile = "./docs/swagger.json"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar trazas")
	}

	var (
		txRunner repository.TxRunner
		store    repository.Store
	)
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		db := memory.NewDB()
		for _, p := range catalog.Demo() {
			db.SeedProduct(p)
		}
		txRunner, store = db, db.Store()
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migración")
		}
		txRunner, store = postgres.NewTxRunner(pool), postgres.NewStore(pool)
	}

	var (
		registry *prometheus.Registry
		m        *metrics.Metrics
	)
	if cfg.Telemetry.MetricsEnabled {
		registry = metrics.NewRegistry()
		m = metrics.New(registry)
	}

	// Cada constructor etiqueta su propio componente en el logger.
	ledgerUC := inventory.NewBatchLedgerUseCase(txRunner, store, log, m)
	recorderUC := inventory.NewMovementRecorderUseCase(txRunner, store, log, m)
	snapshotUC := inventory.NewSnapshotUseCase(txRunner, store, log, m)
	finalizeUC := inventory.NewFinalizeUseCase(txRunner, cfg.Inventory.FinalizeWorkers, log, m).
		WithLimits(cfg.Inventory.FinalizeItemTimeout, cfg.MaxConcurrentFinalizes())
	stockUC := inventory.NewStockUseCase(store.Products)

	// PDF: hoja de conteo del inventario físico
	reportUC := inventory.NewReportUseCase(store, infrapdf.NewSessionReportRenderer(language.BrazilianPortuguese))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		Immutable:    true,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 60,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Lab Inventario API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:    ledgerUC,
		Recorder:  recorderUC,
		Snapshot:  snapshotUC,
		Finalizer: finalizeUC,
		Stock:     stockUC,
		Reports:   reportUC,
		Log:       log,
		Metrics:   m,
		Registry:  registry,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado de trazas")
	}

	log.Info().Msg("aplicación detenida")
}
