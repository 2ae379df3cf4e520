package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// Price and Quantity are pointers so an omitted field is rejected instead of
// being read as zero.
type CreateProductRequest struct {
	Name        string           `json:"product_name" validate:"required,min=1,max=120"`
	Price       *decimal.Decimal `json:"price"        validate:"required,min=0"`
	Quantity    *int             `json:"quantity"     validate:"required,min=0"`
	CategoryID  *uint            `json:"category"`
	Description *string          `json:"description"`
	IsActive    *bool            `json:"is_active"`
}

// UpdateProductRequest replaces the editable fields. A quantity different from
// the stored one is applied as a stock adjustment.
type UpdateProductRequest struct {
	Name        string           `json:"product_name" validate:"required,min=1,max=120"`
	Price       *decimal.Decimal `json:"price"        validate:"required,min=0"`
	Quantity    *int             `json:"quantity"     validate:"required,min=0"`
	CategoryID  *uint            `json:"category"`
	Description *string          `json:"description"`
	IsActive    *bool            `json:"is_active"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

// ProductFilter is bound from the query string of GET /v1/products.
type ProductFilter struct {
	Search string `form:"search"`
	Sort   string `form:"sort,default=id"`
	Order  string `form:"order,default=asc"`
	Page   int    `form:"page,default=1"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductResponse struct {
	ID           uint            `json:"id"`
	Name         string          `json:"product_name"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	IsActive     bool            `json:"is_active"`
	CategoryID   *uint           `json:"category"`
	CategoryName *string         `json:"category_name"`
	Description  *string         `json:"description"`
	LowStock     bool            `json:"low_stock"`
}

type ProductListResponse struct {
	Data   []ProductResponse `json:"data"`
	Total  int64             `json:"total"`
	Page   int               `json:"page"`
	Pages  int               `json:"pages"`
	Search string            `json:"search"`
	Sort   string            `json:"sort"`
	Order  string            `json:"order"`
}
