package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/labinventario-api/internal/domain/entity"
)

// CreateBatchRequest body para POST /api/batches.
type CreateBatchRequest struct {
	ProductID        string          `json:"product_id" validate:"required"`
	LotNumber        string          `json:"lot_number" validate:"required,max=100"`
	InitialQuantity  decimal.Decimal `json:"initial_quantity"`
	ExpiresAt        *time.Time      `json:"expires_at,omitempty"`
	Manufacturer     string          `json:"manufacturer"`
	StorageCondition string          `json:"storage_condition,omitempty"`
	Notes            string          `json:"notes"`
}

// UpdateBatchRequest body para PUT /api/batches/:id. Reemplaza los datos del lote, no sus cantidades.
type UpdateBatchRequest struct {
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Manufacturer string     `json:"manufacturer"`
	OpenedAt     *time.Time `json:"opened_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	RequestedAt  *time.Time `json:"requested_at,omitempty"`
	Notes        string     `json:"notes"`
}

// OpenBatchRequest body para POST /api/batches/:id/open.
type OpenBatchRequest struct {
	Justification *string `json:"justification,omitempty"`
}

// ApplyQuantitiesRequest body para PUT /api/batches/:id/quantities.
type ApplyQuantitiesRequest struct {
	ClosedQuantity decimal.Decimal `json:"closed_quantity"`
	InUseQuantity  decimal.Decimal `json:"in_use_quantity"`
}

// QuantityRequest body para traspasos y consumo de la bolsa en uso.
type QuantityRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	Notes    string          `json:"notes,omitempty"`
}

// StorageConditionRequest body para PUT /api/batches/:id/storage.
type StorageConditionRequest struct {
	StorageCondition string `json:"storage_condition" validate:"required"`
}

// TenderRequest body para PUT /api/batches/:id/tender.
type TenderRequest struct {
	ToBeTendered bool `json:"to_be_tendered"`
}

// BatchResponse salida de un lote.
type BatchResponse struct {
	ID                   string          `json:"id"`
	ProductID            string          `json:"product_id"`
	ProductCode          string          `json:"product_code,omitempty"`
	ProductDescription   string          `json:"product_description,omitempty"`
	UnitMeasure          string          `json:"unit_measure,omitempty"`
	LotNumber            string          `json:"lot_number"`
	InitialQuantity      decimal.Decimal `json:"initial_quantity"`
	ClosedQuantity       decimal.Decimal `json:"closed_quantity"`
	InUseQuantity        decimal.Decimal `json:"in_use_quantity"`
	TotalQuantity        decimal.Decimal `json:"total_quantity"`
	ExpiresAt            *time.Time      `json:"expires_at,omitempty"`
	Expired              bool            `json:"expired"`
	Opened               bool            `json:"opened"`
	OpeningJustification *string         `json:"opening_justification,omitempty"`
	OpenedAt             *time.Time      `json:"opened_at,omitempty"`
	FinishedAt           *time.Time      `json:"finished_at,omitempty"`
	RequestedAt          *time.Time      `json:"requested_at,omitempty"`
	StorageCondition     string          `json:"storage_condition"`
	ToBeTendered         bool            `json:"to_be_tendered"`
	Manufacturer         string          `json:"manufacturer"`
	Notes                string          `json:"notes"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// PoolsResponse bolsas de un lote tras una operación.
type PoolsResponse struct {
	BatchID        string          `json:"batch_id"`
	ClosedQuantity decimal.Decimal `json:"closed_quantity"`
	InUseQuantity  decimal.Decimal `json:"in_use_quantity"`
	TotalQuantity  decimal.Decimal `json:"total_quantity"`
}

// BatchTotalResponse salida de GET /api/batches/:id/total.
type BatchTotalResponse struct {
	BatchID       string          `json:"batch_id"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
}

// NewBatchResponse arma la salida de un lote. now decide si está vencido.
func NewBatchResponse(b *entity.Batch, now time.Time) BatchResponse {
	return BatchResponse{
		ID:                   b.ID,
		ProductID:            b.ProductID,
		LotNumber:            b.LotNumber,
		InitialQuantity:      b.InitialQuantity,
		ClosedQuantity:       b.ClosedQuantity,
		InUseQuantity:        b.InUseQuantity,
		TotalQuantity:        b.Total(),
		ExpiresAt:            b.ExpiresAt,
		Expired:              b.IsExpired(now),
		Opened:               b.Opened,
		OpeningJustification: b.OpeningJustification,
		OpenedAt:             b.OpenedAt,
		FinishedAt:           b.FinishedAt,
		RequestedAt:          b.RequestedAt,
		StorageCondition:     b.StorageCondition,
		ToBeTendered:         b.ToBeTendered,
		Manufacturer:         b.Manufacturer,
		Notes:                b.Notes,
		CreatedAt:            b.CreatedAt,
		UpdatedAt:            b.UpdatedAt,
	}
}

// NewBatchViewResponse como NewBatchResponse, con los datos del producto.
func NewBatchViewResponse(v *entity.BatchView, now time.Time) BatchResponse {
	r := NewBatchResponse(&v.Batch, now)
	r.ProductCode = v.ProductCode
	r.ProductDescription = v.ProductDescription
	r.UnitMeasure = v.UnitMeasure
	return r
}
