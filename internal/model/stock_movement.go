package model

import "time"

// Movement directions.
const (
	MovementIn  = "in"
	MovementOut = "out"
)

// ReasonSale is the movement reason written by the sale path.
const ReasonSale = "Sale"

// ReasonAdjustment marks a quantity correction made through a catalog edit.
const ReasonAdjustment = "Adjustment"

// StockMovement is an append-only audit entry for a change in a product's
// on-hand quantity. Quantity is always positive; MovementType gives the sign.
type StockMovement struct {
	ID           uint      `gorm:"primaryKey"`
	ProductID    uint      `gorm:"index;not null"`
	UserID       uint      `gorm:"index;not null"`
	MovementType string    `gorm:"type:varchar(3);not null;check:chk_stock_movements_type,movement_type IN ('in','out')"`
	Quantity     int       `gorm:"not null;check:chk_stock_movements_quantity,quantity > 0"`
	Reason       string    `gorm:"type:varchar(255);not null"`
	MovementTime time.Time `gorm:"index;not null"`

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (StockMovement) TableName() string { return "stock_movements" }
