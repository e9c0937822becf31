// Package memory implementa los puertos de persistencia en memoria con transacciones reales
// (diario de deshacer y bloqueos por fila). Lo usan los tests y STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhoicas/labinventario-api/internal/domain"
	"github.com/jhoicas/labinventario-api/internal/domain/entity"
	"github.com/jhoicas/labinventario-api/internal/domain/repository"
)

var _ repository.TxRunner = (*DB)(nil)

type movementRow struct {
	movement entity.Movement
	seq      int64
}

// DB guarda el estado completo del inventario. Las lecturas ven escrituras aún no confirmadas de
// otras transacciones; la serialización de lectura-modificación-escritura la dan los bloqueos por fila.
type DB struct {
	mu        sync.RWMutex
	products  map[string]entity.Product
	batches   map[string]entity.Batch
	movements map[string]movementRow
	sessions  map[string]entity.InventorySession
	items     map[string]entity.InventoryItem
	seq       int64

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

// NewDB crea una base vacía.
func NewDB() *DB {
	return &DB{
		products:  map[string]entity.Product{},
		batches:   map[string]entity.Batch{},
		movements: map[string]movementRow{},
		sessions:  map[string]entity.InventorySession{},
		items:     map[string]entity.InventoryItem{},
		locks:     map[string]chan struct{}{},
	}
}

// SeedProduct inserta o reemplaza un producto. El catálogo vive fuera del servicio; esto lo simula.
func (db *DB) SeedProduct(p entity.Product) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.products[p.ID] = p
}

// Store devuelve repositorios sin transacción (cada llamada se confirma al instante).
func (db *DB) Store() repository.Store {
	return db.bind(nil)
}

// Run ejecuta fn en una transacción. Si fn devuelve error (o entra en pánico) se deshacen sus
// escrituras en orden inverso. Los bloqueos tomados se liberan al terminar.
// Se permiten transacciones anidadas siempre que no bloqueen las mismas filas.
func (db *DB) Run(ctx context.Context, fn func(store repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: begin transaction: %w", domain.ErrStorage, err)
	}
	t := &txn{db: db, held: map[string]chan struct{}{}}
	defer t.release()

	committed := false
	defer func() {
		if !committed {
			t.rollback()
		}
	}()

	if err := fn(db.bind(t)); err != nil {
		return err
	}
	committed = true
	return nil
}

func (db *DB) bind(t *txn) repository.Store {
	return repository.Store{
		Products:  &productRepo{db: db},
		Batches:   &batchRepo{db: db, tx: t},
		Movements: &movementRepo{db: db, tx: t},
		Sessions:  &sessionRepo{db: db, tx: t},
		Items:     &itemRepo{db: db, tx: t},
	}
}

func (db *DB) lockFor(key string) chan struct{} {
	db.locksMu.Lock()
	defer db.locksMu.Unlock()
	ch, ok := db.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		db.locks[key] = ch
	}
	return ch
}

// txn acumula las acciones de deshacer y los bloqueos de una transacción.
type txn struct {
	db   *DB
	undo []func()
	held map[string]chan struct{}
}

// record añade una acción de deshacer. Se llama con db.mu tomado.
func (t *txn) record(f func()) {
	if t == nil {
		return
	}
	t.undo = append(t.undo, f)
}

// lock bloquea key hasta el fin de la transacción. Fuera de transacción no bloquea.
func (t *txn) lock(ctx context.Context, key string) error {
	if t == nil {
		return nil
	}
	if _, ok := t.held[key]; ok {
		return nil
	}
	ch := t.db.lockFor(key)
	select {
	case ch <- struct{}{}:
		t.held[key] = ch
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: lock %s: %w", domain.ErrStorage, key, ctx.Err())
	}
}

func (t *txn) rollback() {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *txn) release() {
	for key, ch := range t.held {
		<-ch
		delete(t.held, key)
	}
}
