package memory

import (
	"strings"
	"time"

	"github.com/jhoicas/labinventario-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Las copias evitan que un llamador modifique el estado guardado a través de punteros compartidos.
// Los identificadores se copian también: pueden venir de un búfer de la petición HTTP que se reutiliza.

func cloneBatch(b entity.Batch) entity.Batch {
	b.ID = strings.Clone(b.ID)
	b.ProductID = strings.Clone(b.ProductID)
	b.ExpiresAt = cloneTime(b.ExpiresAt)
	b.OpenedAt = cloneTime(b.OpenedAt)
	b.FinishedAt = cloneTime(b.FinishedAt)
	b.RequestedAt = cloneTime(b.RequestedAt)
	if b.OpeningJustification != nil {
		j := *b.OpeningJustification
		b.OpeningJustification = &j
	}
	return b
}

func cloneMovement(m entity.Movement) entity.Movement {
	m.ID = strings.Clone(m.ID)
	if m.BatchID != nil {
		id := strings.Clone(*m.BatchID)
		m.BatchID = &id
	}
	return m
}

func cloneSession(s entity.InventorySession) entity.InventorySession {
	s.ID = strings.Clone(s.ID)
	s.FinalizedAt = cloneTime(s.FinalizedAt)
	return s
}

func cloneItem(it entity.InventoryItem) entity.InventoryItem {
	it.ID = strings.Clone(it.ID)
	it.SessionID = strings.Clone(it.SessionID)
	it.BatchID = strings.Clone(it.BatchID)
	it.CountedQuantity = cloneDecimal(it.CountedQuantity)
	it.Difference = cloneDecimal(it.Difference)
	return it
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
