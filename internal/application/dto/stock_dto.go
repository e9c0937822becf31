package dto

import "github.com/shopspring/decimal"

// StockLineResponse stock consolidado de un producto.
type StockLineResponse struct {
	ProductID      string          `json:"product_id"`
	Code           string          `json:"code"`
	Description    string          `json:"description"`
	UnitMeasure    string          `json:"unit_measure"`
	Manufacturer   string          `json:"manufacturer,omitempty"`
	MinimumStock   decimal.Decimal `json:"minimum_stock"`
	ClosedQuantity decimal.Decimal `json:"closed_quantity"`
	InUseQuantity  decimal.Decimal `json:"in_use_quantity"`
	TotalQuantity  decimal.Decimal `json:"total_quantity"`
	BatchCount     int             `json:"batch_count"`
	BelowMinimum   bool            `json:"below_minimum"`
}

// StockAlertResponse producto por debajo de su stock mínimo.
type StockAlertResponse struct {
	ProductID      string          `json:"product_id"`
	Code           string          `json:"code"`
	Description    string          `json:"description"`
	UnitMeasure    string          `json:"unit_measure"`
	MinimumStock   decimal.Decimal `json:"minimum_stock"`
	ClosedQuantity decimal.Decimal `json:"closed_quantity"`
	InUseQuantity  decimal.Decimal `json:"in_use_quantity"`
	TotalQuantity  decimal.Decimal `json:"total_quantity"`
	Deficit        decimal.Decimal `json:"deficit"`  // mínimo - total
	Priority       int             `json:"priority"` // 1 = más urgente
}
