package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/labinventario-api/internal/domain"
	"github.com/jhoicas/labinventario-api/internal/domain/entity"
	"github.com/jhoicas/labinventario-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// ─── Productos ───────────────────────────────────────────────────────────────

type productRepo struct {
	db *DB
}

func (r *productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	p, ok := r.db.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *productRepo) ListStock(_ context.Context) ([]*entity.ProductStock, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	byProduct := make(map[string]*entity.ProductStock, len(r.db.products))
	for _, p := range r.db.products {
		byProduct[p.ID] = &entity.ProductStock{Product: p, ClosedQuantity: decimal.Zero, InUseQuantity: decimal.Zero}
	}
	for _, b := range r.db.batches {
		s, ok := byProduct[b.ProductID]
		if !ok {
			continue
		}
		s.ClosedQuantity = s.ClosedQuantity.Add(b.ClosedQuantity)
		s.InUseQuantity = s.InUseQuantity.Add(b.InUseQuantity)
		s.BatchCount++
	}
	list := make([]*entity.ProductStock, 0, len(byProduct))
	for _, s := range byProduct {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list, nil
}

// ─── Lotes ───────────────────────────────────────────────────────────────────

type batchRepo struct {
	db *DB
	tx *txn
}

func batchKey(id string) string { return "batch:" + id }

func (r *batchRepo) Create(_ context.Context, b *entity.Batch) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.products[b.ProductID]; !ok {
		return domain.ErrNotFound
	}
	if _, ok := r.db.batches[b.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, other := range r.db.batches {
		if other.ProductID == b.ProductID && other.LotNumber == b.LotNumber {
			return domain.ErrDuplicate
		}
	}
	row := cloneBatch(*b)
	r.db.batches[row.ID] = row
	r.tx.record(func() { delete(r.db.batches, row.ID) })
	return nil
}

func (r *batchRepo) GetByID(_ context.Context, id string) (*entity.Batch, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	b, ok := r.db.batches[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := cloneBatch(b)
	return &c, nil
}

func (r *batchRepo) GetForUpdate(ctx context.Context, id string) (*entity.Batch, error) {
	if err := r.tx.lock(ctx, batchKey(id)); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *batchRepo) view(b entity.Batch) *entity.BatchView {
	p := r.db.products[b.ProductID]
	return &entity.BatchView{
		Batch:              cloneBatch(b),
		ProductCode:        p.Code,
		ProductDescription: p.Description,
		UnitMeasure:        p.UnitMeasure,
	}
}

func (r *batchRepo) GetView(_ context.Context, id string) (*entity.BatchView, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	b, ok := r.db.batches[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.view(b), nil
}

func (r *batchRepo) List(_ context.Context) ([]*entity.BatchView, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	list := make([]*entity.BatchView, 0, len(r.db.batches))
	for _, b := range r.db.batches {
		list = append(list, r.view(b))
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].ProductCode != list[j].ProductCode {
			return list[i].ProductCode < list[j].ProductCode
		}
		return batchLess(&list[i].Batch, &list[j].Batch)
	})
	return list, nil
}

func (r *batchRepo) ListByProduct(_ context.Context, productID string) ([]*entity.BatchView, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var list []*entity.BatchView
	for _, b := range r.db.batches {
		if b.ProductID == productID {
			list = append(list, r.view(b))
		}
	}
	sort.Slice(list, func(i, j int) bool { return batchLess(&list[i].Batch, &list[j].Batch) })
	return list, nil
}

// batchLess ordena por vencimiento (sin fecha al final) y número de lote.
func batchLess(a, b *entity.Batch) bool {
	switch {
	case a.ExpiresAt == nil && b.ExpiresAt != nil:
		return false
	case a.ExpiresAt != nil && b.ExpiresAt == nil:
		return true
	case a.ExpiresAt != nil && !a.ExpiresAt.Equal(*b.ExpiresAt):
		return a.ExpiresAt.Before(*b.ExpiresAt)
	}
	return a.LotNumber < b.LotNumber
}

func (r *batchRepo) ListForSnapshot(ctx context.Context) ([]*entity.Batch, error) {
	r.db.mu.RLock()
	ids := make([]string, 0, len(r.db.batches))
	for id := range r.db.batches {
		ids = append(ids, id)
	}
	r.db.mu.RUnlock()

	// Orden fijo de bloqueo para no cruzarse con otra foto concurrente.
	sort.Strings(ids)
	for _, id := range ids {
		if err := r.tx.lock(ctx, batchKey(id)); err != nil {
			return nil, err
		}
	}

	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	list := make([]*entity.Batch, 0, len(ids))
	for _, id := range ids {
		b, ok := r.db.batches[id]
		if !ok {
			continue
		}
		c := cloneBatch(b)
		list = append(list, &c)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (r *batchRepo) ListOpenByProduct(_ context.Context, productID, exceptID string) ([]*entity.Batch, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var list []*entity.Batch
	for _, b := range r.db.batches {
		if b.ProductID == productID && b.Opened && b.ID != exceptID {
			c := cloneBatch(b)
			list = append(list, &c)
		}
	}
	return list, nil
}

func (r *batchRepo) UpdateQuantities(_ context.Context, id string, closed, inUse decimal.Decimal) error {
	if closed.IsNegative() || inUse.IsNegative() {
		return domain.ErrInvalidInput
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	prev, ok := r.db.batches[id]
	if !ok {
		return domain.ErrNotFound
	}
	// La clave se toma de la fila guardada: id puede apuntar a un búfer que el llamador reutiliza.
	key := prev.ID
	next := prev
	next.ClosedQuantity = closed
	next.InUseQuantity = inUse
	next.UpdatedAt = time.Now()
	r.db.batches[key] = next
	r.tx.record(func() { r.db.batches[key] = prev })
	return nil
}

func (r *batchRepo) Update(_ context.Context, b *entity.Batch) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	prev, ok := r.db.batches[b.ID]
	if !ok {
		return domain.ErrNotFound
	}
	next := prev
	next.ExpiresAt = b.ExpiresAt
	next.Manufacturer = b.Manufacturer
	next.Opened = b.Opened
	next.OpeningJustification = b.OpeningJustification
	next.OpenedAt = b.OpenedAt
	next.FinishedAt = b.FinishedAt
	next.RequestedAt = b.RequestedAt
	next.StorageCondition = b.StorageCondition
	next.ToBeTendered = b.ToBeTendered
	next.Notes = b.Notes
	next.UpdatedAt = b.UpdatedAt
	key := prev.ID
	r.db.batches[key] = cloneBatch(next)
	r.tx.record(func() { r.db.batches[key] = prev })
	return nil
}

// Delete replica las claves foráneas: movimientos e ítems conservan la fila con batch_id nulo.
func (r *batchRepo) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	prev, ok := r.db.batches[id]
	if !ok {
		return domain.ErrNotFound
	}
	id = prev.ID
	delete(r.db.batches, id)
	r.tx.record(func() { r.db.batches[id] = prev })

	for mid, row := range r.db.movements {
		if row.movement.BatchID != nil && *row.movement.BatchID == id {
			old := row
			row.movement.BatchID = nil
			r.db.movements[mid] = row
			r.tx.record(func() { r.db.movements[mid] = old })
		}
	}
	for iid, it := range r.db.items {
		if it.BatchID == id {
			old := it
			it.BatchID = ""
			r.db.items[iid] = it
			r.tx.record(func() { r.db.items[iid] = old })
		}
	}
	return nil
}

// ─── Movimientos ─────────────────────────────────────────────────────────────

type movementRepo struct {
	db *DB
	tx *txn
}

func (r *movementRepo) Create(_ context.Context, m *entity.Movement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if m.BatchID != nil {
		if _, ok := r.db.batches[*m.BatchID]; !ok {
			return domain.ErrNotFound
		}
	}
	if _, ok := r.db.movements[m.ID]; ok {
		return domain.ErrDuplicate
	}
	r.db.seq++
	row := movementRow{movement: cloneMovement(*m), seq: r.db.seq}
	r.db.movements[row.movement.ID] = row
	r.tx.record(func() { delete(r.db.movements, row.movement.ID) })
	return nil
}

func (r *movementRepo) List(_ context.Context, f repository.MovementFilter) ([]*entity.MovementView, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	rows := make([]movementRow, 0, len(r.db.movements))
	for _, row := range r.db.movements {
		m := row.movement
		if f.BatchID != "" && (m.BatchID == nil || *m.BatchID != f.BatchID) {
			continue
		}
		if f.Type != "" && m.Type != f.Type {
			continue
		}
		if f.From != nil && m.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !m.CreatedAt.Before(*f.To) {
			continue
		}
		rows = append(rows, row)
	}
	// Más recientes primero; a igual fecha, el último insertado primero.
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.movement.CreatedAt.Equal(b.movement.CreatedAt) {
			return a.movement.CreatedAt.After(b.movement.CreatedAt)
		}
		return a.seq > b.seq
	})

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	start := f.Offset
	if start > len(rows) {
		start = len(rows)
	}
	end := start + limit
	if end > len(rows) {
		end = len(rows)
	}

	list := make([]*entity.MovementView, 0, end-start)
	for _, row := range rows[start:end] {
		v := &entity.MovementView{Movement: cloneMovement(row.movement)}
		if row.movement.BatchID != nil {
			if b, ok := r.db.batches[*row.movement.BatchID]; ok {
				p := r.db.products[b.ProductID]
				v.LotNumber = b.LotNumber
				v.ProductCode = p.Code
				v.ProductDescription = p.Description
			}
		}
		list = append(list, v)
	}
	return list, nil
}

// ─── Sesiones de inventario ──────────────────────────────────────────────────

type sessionRepo struct {
	db *DB
	tx *txn
}

func sessionKey(id string) string { return "session:" + id }

func (r *sessionRepo) Create(_ context.Context, s *entity.InventorySession) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.sessions[s.ID]; ok {
		return domain.ErrDuplicate
	}
	row := cloneSession(*s)
	r.db.sessions[row.ID] = row
	r.tx.record(func() { delete(r.db.sessions, row.ID) })
	return nil
}

func (r *sessionRepo) GetByID(_ context.Context, id string) (*entity.InventorySession, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	s, ok := r.db.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := cloneSession(s)
	return &c, nil
}

func (r *sessionRepo) GetForUpdate(ctx context.Context, id string) (*entity.InventorySession, error) {
	if err := r.tx.lock(ctx, sessionKey(id)); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// GetForShare toma el mismo bloqueo exclusivo: en memoria no hay modo compartido.
func (r *sessionRepo) GetForShare(ctx context.Context, id string) (*entity.InventorySession, error) {
	return r.GetForUpdate(ctx, id)
}

func (r *sessionRepo) List(_ context.Context) ([]*entity.InventorySessionSummary, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	counts := map[string]int{}
	for _, it := range r.db.items {
		counts[it.SessionID]++
	}
	list := make([]*entity.InventorySessionSummary, 0, len(r.db.sessions))
	for _, s := range r.db.sessions {
		list = append(list, &entity.InventorySessionSummary{InventorySession: cloneSession(s), ItemCount: counts[s.ID]})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (r *sessionRepo) MarkFinalized(_ context.Context, id string, at time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	prev, ok := r.db.sessions[id]
	if !ok || prev.Finalized {
		return false, nil
	}
	key := prev.ID
	next := prev
	next.Finalized = true
	next.FinalizedAt = &at
	r.db.sessions[key] = next
	r.tx.record(func() { r.db.sessions[key] = prev })
	return true, nil
}

// ─── Ítems de inventario ─────────────────────────────────────────────────────

type itemRepo struct {
	db *DB
	tx *txn
}

func (r *itemRepo) CreateMany(ctx context.Context, items []*entity.InventoryItem) error {
	for _, it := range items {
		if err := r.Create(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

func (r *itemRepo) Create(_ context.Context, it *entity.InventoryItem) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.sessions[it.SessionID]; !ok {
		return domain.ErrNotFound
	}
	if _, ok := r.db.batches[it.BatchID]; !ok {
		return domain.ErrNotFound
	}
	if _, ok := r.db.items[it.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, other := range r.db.items {
		if other.SessionID == it.SessionID && other.BatchID == it.BatchID {
			return domain.ErrDuplicate
		}
	}
	row := cloneItem(*it)
	r.db.items[row.ID] = row
	r.tx.record(func() { delete(r.db.items, row.ID) })
	return nil
}

func (r *itemRepo) GetByID(_ context.Context, id string) (*entity.InventoryItem, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	it, ok := r.db.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := cloneItem(it)
	return &c, nil
}

func (r *itemRepo) ExistsForBatch(_ context.Context, sessionID, batchID string) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, it := range r.db.items {
		if it.SessionID == sessionID && it.BatchID == batchID {
			return true, nil
		}
	}
	return false, nil
}

func (r *itemRepo) ExistsInOpenSession(_ context.Context, batchID string) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, it := range r.db.items {
		if it.BatchID == batchID && !r.db.sessions[it.SessionID].Finalized {
			return true, nil
		}
	}
	return false, nil
}

func (r *itemRepo) ListBySession(_ context.Context, sessionID string) ([]*entity.InventoryItemView, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var list []*entity.InventoryItemView
	for _, it := range r.db.items {
		if it.SessionID != sessionID {
			continue
		}
		v := &entity.InventoryItemView{InventoryItem: cloneItem(it)}
		if b, ok := r.db.batches[it.BatchID]; ok {
			p := r.db.products[b.ProductID]
			v.LotNumber = b.LotNumber
			v.ProductCode = p.Code
			v.ProductDescription = p.Description
			v.UnitMeasure = p.UnitMeasure
		}
		list = append(list, v)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].ProductCode != list[j].ProductCode {
			return list[i].ProductCode < list[j].ProductCode
		}
		return list[i].LotNumber < list[j].LotNumber
	})
	return list, nil
}

func (r *itemRepo) ListCounted(_ context.Context, sessionID string) ([]*entity.InventoryItem, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var list []*entity.InventoryItem
	for _, it := range r.db.items {
		if it.SessionID != sessionID || it.CountedQuantity == nil {
			continue
		}
		if _, ok := r.db.batches[it.BatchID]; !ok {
			continue
		}
		c := cloneItem(it)
		list = append(list, &c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *itemRepo) UpdateCount(_ context.Context, it *entity.InventoryItem) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	prev, ok := r.db.items[it.ID]
	if !ok {
		return domain.ErrNotFound
	}
	next := prev
	next.CountedQuantity = it.CountedQuantity
	next.Difference = it.Difference
	next.Notes = it.Notes
	key := prev.ID
	r.db.items[key] = cloneItem(next)
	r.tx.record(func() { r.db.items[key] = prev })
	return nil
}

func (r *itemRepo) Delete(_ context.Context, id string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	prev, ok := r.db.items[id]
	if !ok {
		return false, nil
	}
	key := prev.ID
	delete(r.db.items, key)
	r.tx.record(func() { r.db.items[key] = prev })
	return true, nil
}
