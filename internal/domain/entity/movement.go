package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType es el conjunto cerrado de tipos de movimiento de stock.
type MovementType string

// Tipos de movimiento. Los seis primeros pueden registrarse; EXCLUSAO solo lo escribe el borrado de un lote.
const (
	MovementEntrada    MovementType = "ENTRADA"
	MovementSaida      MovementType = "SAIDA"
	MovementDoacao     MovementType = "DOACAO"
	MovementEmprestimo MovementType = "EMPRESTIMO"
	MovementVencimento MovementType = "VENCIMENTO"
	MovementAjuste     MovementType = "AJUSTE"
	MovementExclusao   MovementType = "EXCLUSAO"
)

// Direction clasifica el efecto de un tipo sobre el total del lote.
type Direction int

const (
	// Inbound suma a la bolsa cerrada.
	Inbound Direction = iota
	// Depleting consume primero la bolsa en uso y luego la cerrada.
	Depleting
	// AuditOnly no altera cantidades (registro de trazabilidad).
	AuditOnly
)

// RecordableMovementTypes lista los tipos aceptados por el registro de movimientos.
var RecordableMovementTypes = []MovementType{
	MovementEntrada, MovementSaida, MovementDoacao, MovementEmprestimo, MovementVencimento, MovementAjuste,
}

// ParseMovementType valida s contra los tipos registrables.
func ParseMovementType(s string) (MovementType, bool) {
	t := MovementType(s)
	if t == MovementExclusao {
		return "", false
	}
	if _, ok := t.direction(); !ok {
		return "", false
	}
	return t, true
}

// Valid indica si t pertenece al conjunto cerrado (incluye EXCLUSAO, útil para filtros).
func (t MovementType) Valid() bool {
	_, ok := t.direction()
	return ok
}

// Direction devuelve el efecto del tipo. Un tipo desconocido se trata como AuditOnly.
func (t MovementType) Direction() Direction {
	d, _ := t.direction()
	return d
}

func (t MovementType) direction() (Direction, bool) {
	switch t {
	case MovementEntrada:
		return Inbound, true
	case MovementSaida, MovementDoacao, MovementEmprestimo, MovementVencimento, MovementAjuste:
		return Depleting, true
	case MovementExclusao:
		return AuditOnly, true
	}
	return AuditOnly, false
}

// Movement es un registro de auditoría inmutable. Quantity siempre se guarda positiva;
// el tipo determina la dirección.
type Movement struct {
	ID        string
	BatchID   *string // nil cuando el lote fue eliminado
	Type      MovementType
	Quantity  decimal.Decimal
	Reason    string
	UserID    string
	Notes     string
	CreatedAt time.Time
}

// MovementView añade datos del lote y producto para listados.
type MovementView struct {
	Movement
	LotNumber          string
	ProductCode        string
	ProductDescription string
}
