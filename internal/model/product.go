package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry with its on-hand quantity.
// Quantity is the only shared mutable state touched by the sale path and is
// never allowed below zero (enforced both by the locked sale transaction and
// by a CHECK constraint).
type Product struct {
	ID          uint            `gorm:"primaryKey"`
	Name        string          `gorm:"column:product_name;type:varchar(120);index;not null"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null;check:chk_products_price,price >= 0"`
	Quantity    int             `gorm:"not null;default:0;check:chk_products_quantity,quantity >= 0"`
	IsActive    bool            `gorm:"not null;default:true"`
	CategoryID  *uint           `gorm:"column:category;index"`
	Description *string
	// UserID records who created the product; nil for seeded rows.
	UserID    *uint `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Category *Category `gorm:"foreignKey:CategoryID"`
}

func (Product) TableName() string { return "products" }
