package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un reactivo o insumo de laboratorio. Solo se usa como clave foránea de los lotes
// y para el umbral de stock mínimo; su CRUD vive fuera de este servicio.
type Product struct {
	ID           string
	Code         string
	Description  string
	UnitMeasure  string
	Manufacturer string
	MinimumStock decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProductStock agrega el stock de todos los lotes de un producto.
type ProductStock struct {
	Product
	ClosedQuantity decimal.Decimal
	InUseQuantity  decimal.Decimal
	BatchCount     int
}

// Total devuelve cerrado + en uso.
func (p ProductStock) Total() decimal.Decimal {
	return p.ClosedQuantity.Add(p.InUseQuantity)
}

// BelowMinimum indica si el stock total quedó estrictamente por debajo del mínimo.
func (p ProductStock) BelowMinimum() bool {
	return p.Total().LessThan(p.MinimumStock)
}
