package dto

type RestockRequest struct {
	Quantity int    `json:"quantity" validate:"required,min=1"`
	Reason   string `json:"reason"   validate:"max=255"`
}

// MovementFilter is bound from the query string of GET /v1/inventory/movements.
type MovementFilter struct {
	ProductID uint   `form:"product_id"`
	Type      string `form:"type"  validate:"omitempty,oneof=in out"`
	Page      int    `form:"page,default=1"`
}

type RestockResponse struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Added       int    `json:"added"`
	NewQuantity int    `json:"new_quantity"`
}

type StockMovementResponse struct {
	ID           uint   `json:"id"`
	ProductID    uint   `json:"product_id"`
	ProductName  string `json:"product_name"`
	UserID       uint   `json:"user_id"`
	MovementType string `json:"movement_type"`
	Quantity     int    `json:"quantity"`
	Reason       string `json:"reason"`
	MovementTime string `json:"movement_time"`
}

type StockMovementListResponse struct {
	Data  []StockMovementResponse `json:"data"`
	Total int64                   `json:"total"`
	Page  int                     `json:"page"`
	Pages int                     `json:"pages"`
}

type LowStockItem struct {
	ID      uint   `json:"id"`
	Product string `json:"product"`
	Stock   int    `json:"stock"`
}
