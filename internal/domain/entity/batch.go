package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Condiciones de almacenamiento aceptadas para un lote.
const (
	StorageAmbient      = "Ambiente"
	StorageRefrigerated = "2°C-8°C"
	StorageFrozen       = "−20°C"
)

// ValidStorageCondition indica si cond pertenece al conjunto cerrado de condiciones.
func ValidStorageCondition(cond string) bool {
	switch cond {
	case StorageAmbient, StorageRefrigerated, StorageFrozen:
		return true
	}
	return false
}

// Batch representa un lote de un producto con dos bolsas de cantidad:
// ClosedQuantity (envases sellados) e InUseQuantity (envases abiertos).
// Ambas son siempre >= 0; el total disponible es su suma.
type Batch struct {
	ID                   string
	ProductID            string
	LotNumber            string
	InitialQuantity      decimal.Decimal
	ClosedQuantity       decimal.Decimal
	InUseQuantity        decimal.Decimal
	ExpiresAt            *time.Time
	Opened               bool
	OpeningJustification *string
	OpenedAt             *time.Time
	FinishedAt           *time.Time
	RequestedAt          *time.Time
	StorageCondition     string
	ToBeTendered         bool
	Manufacturer         string
	Notes                string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NewBatch crea un lote con toda la cantidad inicial en la bolsa cerrada.
func NewBatch(id, productID, lotNumber string, initial decimal.Decimal, expiresAt *time.Time, manufacturer string, now time.Time) *Batch {
	return &Batch{
		ID:               id,
		ProductID:        productID,
		LotNumber:        lotNumber,
		InitialQuantity:  initial,
		ClosedQuantity:   initial,
		InUseQuantity:    decimal.Zero,
		ExpiresAt:        expiresAt,
		StorageCondition: StorageAmbient,
		Manufacturer:     manufacturer,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Total devuelve ClosedQuantity + InUseQuantity.
func (b *Batch) Total() decimal.Decimal {
	return b.ClosedQuantity.Add(b.InUseQuantity)
}

// IsExpired indica si el lote venció respecto a now.
func (b *Batch) IsExpired(now time.Time) bool {
	return b.ExpiresAt != nil && b.ExpiresAt.Before(now)
}

// BatchView es un lote enriquecido con los datos del producto para listados.
type BatchView struct {
	Batch
	ProductCode        string
	ProductDescription string
	UnitMeasure        string
}
