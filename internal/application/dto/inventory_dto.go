package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/labinventario-api/internal/domain/entity"
)

// CreateInventoryRequest body para POST /api/inventories.
type CreateInventoryRequest struct {
	Notes string `json:"notes"`
}

// RecordCountRequest body para PUT /api/inventories/items/:itemId.
type RecordCountRequest struct {
	CountedQuantity *decimal.Decimal `json:"counted_quantity" validate:"required"`
	Notes           string           `json:"notes"`
}

// InventorySessionResponse salida de una sesión.
type InventorySessionResponse struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Notes       string     `json:"notes"`
	Finalized   bool       `json:"finalized"`
	CreatedAt   time.Time  `json:"created_at"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`
	ItemCount   int        `json:"item_count"`
}

// InventoryItemResponse salida de un ítem de inventario.
type InventoryItemResponse struct {
	ID                 string           `json:"id"`
	SessionID          string           `json:"session_id"`
	BatchID            string           `json:"batch_id"`
	LotNumber          string           `json:"lot_number,omitempty"`
	ProductCode        string           `json:"product_code,omitempty"`
	ProductDescription string           `json:"product_description,omitempty"`
	UnitMeasure        string           `json:"unit_measure,omitempty"`
	SystemQuantity     decimal.Decimal  `json:"system_quantity"`
	CountedQuantity    *decimal.Decimal `json:"counted_quantity"`
	Difference         *decimal.Decimal `json:"difference"`
	Notes              string           `json:"notes"`
}

// InventoryDetailResponse sesión con sus ítems.
type InventoryDetailResponse struct {
	Session InventorySessionResponse `json:"session"`
	Items   []InventoryItemResponse  `json:"items"`
}

// FinalizeFailureResponse ítem que no pudo conciliarse.
type FinalizeFailureResponse struct {
	ItemID  string `json:"item_id"`
	BatchID string `json:"batch_id"`
	Code    string `json:"code"`
	Error   string `json:"error"`
}

// FinalizeResponse resultado de finalizar un inventario.
type FinalizeResponse struct {
	Message          string                    `json:"message"`
	SessionID        string                    `json:"session_id"`
	AlreadyFinalized bool                      `json:"already_finalized"`
	Adjusted         int                       `json:"adjusted"`
	Unchanged        int                       `json:"unchanged"`
	Failures         []FinalizeFailureResponse `json:"failures"`
}

// NewInventorySessionResponse arma la salida de una sesión.
func NewInventorySessionResponse(s *entity.InventorySession, itemCount int) InventorySessionResponse {
	return InventorySessionResponse{
		ID:          s.ID,
		UserID:      s.UserID,
		Notes:       s.Notes,
		Finalized:   s.Finalized,
		CreatedAt:   s.CreatedAt,
		FinalizedAt: s.FinalizedAt,
		ItemCount:   itemCount,
	}
}

// NewInventoryItemResponse arma la salida de un ítem.
func NewInventoryItemResponse(it *entity.InventoryItem) InventoryItemResponse {
	return InventoryItemResponse{
		ID:              it.ID,
		SessionID:       it.SessionID,
		BatchID:         it.BatchID,
		SystemQuantity:  it.SystemQuantity,
		CountedQuantity: it.CountedQuantity,
		Difference:      it.Difference,
		Notes:           it.Notes,
	}
}

// NewInventoryItemViewResponse como NewInventoryItemResponse, con lote y producto.
func NewInventoryItemViewResponse(v *entity.InventoryItemView) InventoryItemResponse {
	r := NewInventoryItemResponse(&v.InventoryItem)
	r.LotNumber = v.LotNumber
	r.ProductCode = v.ProductCode
	r.ProductDescription = v.ProductDescription
	r.UnitMeasure = v.UnitMeasure
	return r
}
