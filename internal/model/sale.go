package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is an immutable record of one product sold by one user.
// UnitPrice is the price read under the row lock at sale time and TotalAmount
// is stored redundantly so reports never depend on the current product price.
type Sale struct {
	ID           uint            `gorm:"primaryKey"`
	ProductID    uint            `gorm:"index;not null"`
	UserID       uint            `gorm:"index;not null"`
	QuantitySold int             `gorm:"not null;check:chk_sales_quantity,quantity_sold > 0"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	SaleTime     time.Time       `gorm:"index;not null"`

	Product *Product `gorm:"foreignKey:ProductID"`
	User    *User    `gorm:"foreignKey:UserID"`
}

func (Sale) TableName() string { return "sales" }
