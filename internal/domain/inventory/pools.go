package inventory

import (
	"fmt"

	"github.com/jhoicas/labinventario-api/internal/domain"
	"github.com/jhoicas/labinventario-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// QuantityScale es el número de decimales que guarda el almacenamiento (NUMERIC(14,3)).
const QuantityScale = 3

// maxQuantity es el primer valor que no cabe en NUMERIC(14,3).
var maxQuantity = decimal.New(1, 14-QuantityScale)

// CheckQuantity devuelve ErrInvalidInput si alguna cantidad tiene más decimales de los que se
// guardan o no cabe en la columna. Los ceros a la derecha no cuentan: 1.5000 es válido.
func CheckQuantity(quantities ...decimal.Decimal) error {
	for _, q := range quantities {
		if !q.Equal(q.Truncate(QuantityScale)) {
			return fmt.Errorf("%w: la cantidad %s admite como máximo %d decimales", domain.ErrInvalidInput, q.String(), QuantityScale)
		}
		if q.Abs().GreaterThanOrEqual(maxQuantity) {
			return fmt.Errorf("%w: la cantidad %s excede el máximo permitido", domain.ErrInvalidInput, q.String())
		}
	}
	return nil
}

// Pools son las dos bolsas de cantidad de un lote.
type Pools struct {
	Closed decimal.Decimal
	InUse  decimal.Decimal
}

// Total devuelve Closed + InUse.
func (p Pools) Total() decimal.Decimal {
	return p.Closed.Add(p.InUse)
}

// Valid indica si ninguna bolsa es negativa.
func (p Pools) Valid() bool {
	return !p.Closed.IsNegative() && !p.InUse.IsNegative()
}

// ApplyMovement calcula las nuevas bolsas para un movimiento de tipo t (servicio de dominio).
// ENTRADA suma a la bolsa cerrada. Los tipos que consumen agotan primero la bolsa en uso
// y solo el remanente sale de la cerrada:
//
//	usado = min(q, enUso); remanente = q - usado; enUso' = enUso - usado; cerrado' = cerrado - remanente
//
// Devuelve ErrInsufficientStock si alguna bolsa quedaría negativa; en ese caso p no se modifica.
func ApplyMovement(t entity.MovementType, p Pools, quantity decimal.Decimal) (Pools, error) {
	if !quantity.IsPositive() {
		return p, domain.ErrInvalidInput
	}
	if err := CheckQuantity(quantity); err != nil {
		return p, err
	}
	var next Pools
	switch t.Direction() {
	case entity.Inbound:
		next = Pools{Closed: p.Closed.Add(quantity), InUse: p.InUse}
	case entity.Depleting:
		used := decimal.Min(quantity, p.InUse)
		remainder := quantity.Sub(used)
		next = Pools{Closed: p.Closed.Sub(remainder), InUse: p.InUse.Sub(used)}
	default:
		return p, domain.ErrInvalidType
	}
	if !next.Valid() {
		return p, domain.ErrInsufficientStock
	}
	return next, nil
}

// Transfer pasa quantity de la bolsa cerrada a la bolsa en uso. El total no cambia.
func Transfer(p Pools, quantity decimal.Decimal) (Pools, error) {
	if !quantity.IsPositive() {
		return p, domain.ErrInvalidInput
	}
	if err := CheckQuantity(quantity); err != nil {
		return p, err
	}
	if quantity.GreaterThan(p.Closed) {
		return p, domain.ErrInsufficientStock
	}
	return Pools{Closed: p.Closed.Sub(quantity), InUse: p.InUse.Add(quantity)}, nil
}

// ConsumeInUse descuenta quantity solo de la bolsa en uso.
func ConsumeInUse(p Pools, quantity decimal.Decimal) (Pools, error) {
	if !quantity.IsPositive() {
		return p, domain.ErrInvalidInput
	}
	if err := CheckQuantity(quantity); err != nil {
		return p, err
	}
	if quantity.GreaterThan(p.InUse) {
		return p, domain.ErrInsufficientStock
	}
	return Pools{Closed: p.Closed, InUse: p.InUse.Sub(quantity)}, nil
}

// Adjustment es el resultado de conciliar un lote contra su conteo físico.
type Adjustment struct {
	Pools
	// Delta = contado - total vivo (no contra la foto).
	Delta decimal.Decimal
	// Changed indica si hay que escribir el lote y el movimiento AJUSTE.
	Changed bool
}

// Reconcile compara el conteo con el total vivo del lote. Si difieren, o si el total vivo ya no coincide
// con la foto del sistema, el lote colapsa a una sola bolsa cerrada de max(0, contado) y en uso 0.
func Reconcile(live Pools, system decimal.Decimal, counted *decimal.Decimal) Adjustment {
	current := live.Total()
	target := current
	if counted != nil {
		target = *counted
	}
	delta := target.Sub(current)
	changed := !delta.IsZero() || !current.Equal(system)
	if !changed {
		return Adjustment{Pools: live, Delta: delta}
	}
	return Adjustment{
		Pools:   Pools{Closed: decimal.Max(decimal.Zero, target), InUse: decimal.Zero},
		Delta:   delta,
		Changed: true,
	}
}
