package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/labinventario-api/internal/domain/repository"
)

var _ repository.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Un error de fn se devuelve tal cual para que el llamador pueda distinguir errores de dominio.
func (r *TxRunner) Run(ctx context.Context, fn func(store repository.Store) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewStore(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit transaction", err)
	}
	return nil
}

// NewStore ata todos los repositorios a q (pool para lecturas sueltas, tx dentro de Run).
func NewStore(q Querier) repository.Store {
	return repository.Store{
		Products:  NewProductRepository(q),
		Batches:   NewBatchRepository(q),
		Movements: NewMovementRepository(q),
		Sessions:  NewInventorySessionRepository(q),
		Items:     NewInventoryItemRepository(q),
	}
}
