// migrate aplica el esquema embebido y, opcionalmente, importa el catálogo de productos.
//
// Uso: go run ./cmd/migrate [catalogo.csv [charset]]
// charset: utf-8 (por defecto), iso-8859-1 o windows-1252.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/labinventario-api/internal/infrastructure/catalog"
	"github.com/jhoicas/labinventario-api/internal/infrastructure/postgres"
	"github.com/jhoicas/labinventario-api/pkg/config"
	"github.com/jhoicas/labinventario-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migración")
	}
	log.Info().Msg("esquema aplicado")

	if len(os.Args) < 2 {
		return
	}
	csvPath := os.Args[1]
	charset := ""
	if len(os.Args) > 2 {
		charset = os.Args[2]
	}

	f, err := os.Open(csvPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", csvPath).Msg("abrir catálogo")
	}
	defer f.Close()

	products, err := catalog.Parse(f, charset)
	if err != nil {
		log.Fatal().Err(err).Str("path", csvPath).Msg("leer catálogo")
	}

	repo := postgres.NewProductRepository(pool)
	for i := range products {
		if err := repo.Upsert(ctx, &products[i]); err != nil {
			log.Fatal().Err(err).Str("code", products[i].Code).Msg("importar producto")
		}
	}
	log.Info().Int("products", len(products)).Str("path", csvPath).Msg("catálogo importado")
}
