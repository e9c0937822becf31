package repository

import "context"

// Store agrupa los repositorios atados a una misma transacción.
type Store struct {
	Products  ProductRepository
	Batches   BatchRepository
	Movements MovementRepository
	Sessions  InventorySessionRepository
	Items     InventoryItemRepository
}

// TxRunner ejecuta fn dentro de una transacción con repositorios atados a ella.
// Si fn devuelve error se hace Rollback; si no, Commit.
type TxRunner interface {
	Run(ctx context.Context, fn func(store Store) error) error
}
