package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// SaleRequest is bound from either a form post or a JSON body. Both fields
// are kept as raw text so a malformed value reaches the service and gets the
// message for the field it was sent in.
type SaleRequest struct {
	ProductID RawValue `json:"product_id" form:"product_id"`
	Quantity  RawValue `json:"quantity"   form:"quantity"`
}

// RawValue holds a scalar field as text, whether it arrived as a form value,
// a JSON string or a JSON number. Other JSON values are kept verbatim and fail
// later parsing.
type RawValue string

func (v *RawValue) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*v = RawValue(s)
		return nil
	}
	*v = RawValue(b)
	return nil
}

func (v RawValue) String() string { return string(v) }

// SalesHistoryFilter is bound from the query string of GET /v1/sales.
type SalesHistoryFilter struct {
	Page int `form:"page,default=1"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SaleConfirmation struct {
	SaleID            uint            `json:"sale_id"`
	ProductID         uint            `json:"product_id"`
	ProductName       string          `json:"product_name"`
	UserID            uint            `json:"user_id"`
	Quantity          int             `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	RemainingQuantity int             `json:"remaining_quantity"`
	SaleTime          string          `json:"sale_time"`
	Message           string          `json:"message"`
}

// SellableProduct is one row of the sales form product picker.
type SellableProduct struct {
	ID       uint            `json:"id"`
	Name     string          `json:"product_name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type SaleHistoryItem struct {
	ID           uint            `json:"id"`
	ProductName  string          `json:"product_name"`
	QuantitySold int             `json:"quantity_sold"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	SaleTime     string          `json:"sale_time"`
	SoldBy       string          `json:"sold_by"`
}

type SaleHistoryResponse struct {
	Data  []SaleHistoryItem `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Pages int               `json:"pages"`
}
