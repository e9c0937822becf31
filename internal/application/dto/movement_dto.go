package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/labinventario-api/internal/domain/entity"
)

// RegisterMovementRequest body para POST /api/movements.
type RegisterMovementRequest struct {
	BatchID  string          `json:"batch_id" validate:"required"`
	Type     string          `json:"type" validate:"required"`
	Quantity decimal.Decimal `json:"quantity"`
	Reason   string          `json:"reason"`
	Notes    string          `json:"notes,omitempty"`
}

// MovementResponse salida de un movimiento.
type MovementResponse struct {
	ID                 string          `json:"id"`
	BatchID            *string         `json:"batch_id"`
	LotNumber          string          `json:"lot_number,omitempty"`
	ProductCode        string          `json:"product_code,omitempty"`
	ProductDescription string          `json:"product_description,omitempty"`
	Type               string          `json:"type"`
	Quantity           decimal.Decimal `json:"quantity"`
	Reason             string          `json:"reason"`
	UserID             string          `json:"user_id"`
	Notes              string          `json:"notes"`
	CreatedAt          time.Time       `json:"created_at"`
}

// RegisterMovementResponse movimiento creado y bolsas resultantes.
type RegisterMovementResponse struct {
	Movement MovementResponse `json:"movement"`
	Batch    PoolsResponse    `json:"batch"`
}

// MovementListResponse lista paginada de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// NewMovementResponse arma la salida de un movimiento.
func NewMovementResponse(m *entity.Movement) MovementResponse {
	return MovementResponse{
		ID:        m.ID,
		BatchID:   m.BatchID,
		Type:      string(m.Type),
		Quantity:  m.Quantity,
		Reason:    m.Reason,
		UserID:    m.UserID,
		Notes:     m.Notes,
		CreatedAt: m.CreatedAt,
	}
}

// NewMovementViewResponse como NewMovementResponse, con lote y producto.
func NewMovementViewResponse(v *entity.MovementView) MovementResponse {
	r := NewMovementResponse(&v.Movement)
	r.LotNumber = v.LotNumber
	r.ProductCode = v.ProductCode
	r.ProductDescription = v.ProductDescription
	return r
}
