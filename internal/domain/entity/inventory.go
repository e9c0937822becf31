package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventorySession es un ciclo de conciliación física (inventário).
// Finalized pasa de false a true una sola vez.
type InventorySession struct {
	ID          string
	UserID      string
	Notes       string
	Finalized   bool
	CreatedAt   time.Time
	FinalizedAt *time.Time
}

// InventorySessionSummary es una sesión con su número de ítems.
type InventorySessionSummary struct {
	InventorySession
	ItemCount int
}

// InventoryItem es la foto de un lote dentro de una sesión.
// SystemQuantity se fija al crear el ítem y no se recalcula aunque el lote cambie.
// BatchID queda vacío si el lote se eliminó después de cerrar la sesión.
type InventoryItem struct {
	ID              string
	SessionID       string
	BatchID         string
	SystemQuantity  decimal.Decimal
	CountedQuantity *decimal.Decimal
	Difference      *decimal.Decimal
	Notes           string
}

// RecordCount registra el conteo y deriva la diferencia contra la foto del sistema.
func (i *InventoryItem) RecordCount(counted decimal.Decimal, notes string) decimal.Decimal {
	diff := counted.Sub(i.SystemQuantity)
	i.CountedQuantity = &counted
	i.Difference = &diff
	i.Notes = notes
	return diff
}

// Counted indica si el ítem ya tiene conteo.
func (i *InventoryItem) Counted() bool {
	return i.CountedQuantity != nil
}

// InventoryItemView añade datos del lote y producto al ítem.
type InventoryItemView struct {
	InventoryItem
	LotNumber          string
	ProductCode        string
	ProductDescription string
	UnitMeasure        string
}
