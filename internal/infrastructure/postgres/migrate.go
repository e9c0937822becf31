package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Schema concatena los scripts embebidos en orden lexicográfico.
func Schema() (string, error) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return "", err
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		data, err := migrationsFS.ReadFile(name)
		if err != nil {
			return "", fmt.Errorf("leer %s: %w", name, err)
		}
		b.Write(data)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// Migrate aplica el esquema en una sola transacción. Los scripts usan IF NOT EXISTS: se puede
// ejecutar en cada arranque.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	schema, err := Schema()
	if err != nil {
		return err
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, schema); err != nil {
		return fmt.Errorf("aplicar esquema: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
