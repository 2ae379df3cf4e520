package repository

import (
	"context"
	"time"

	"stockpos/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DailyTotal is one bucket of the sales chart.
type DailyTotal struct {
	Day   time.Time
	Total decimal.Decimal
}

// ProductQuantity is one row of the best-sellers ranking.
type ProductQuantity struct {
	ProductName string
	Quantity    int64
}

type SaleRepository interface {
	CreateTx(tx *gorm.DB, s *model.Sale) error
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Sale, error)
	ListPage(ctx context.Context, limit, offset int) ([]model.Sale, int64, error)
	ListRecent(ctx context.Context, limit int) ([]model.Sale, error)
	SummaryBetween(ctx context.Context, from, to time.Time) (count int64, total decimal.Decimal, err error)
	DailyTotalsSince(ctx context.Context, since time.Time) ([]DailyTotal, error)
	TopProducts(ctx context.Context, limit int) ([]ProductQuantity, error)
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) CreateTx(tx *gorm.DB, s *model.Sale) error {
	return tx.Omit("Product", "User").Create(s).Error
}

// ListBetween returns sales with sale_time in [from, to), newest first.
func (r *saleRepo) ListBetween(ctx context.Context, from, to time.Time) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.WithContext(ctx).Preload("Product").
		Where("sale_time >= ? AND sale_time < ?", from, to).
		Order("sale_time DESC").
		Find(&sales).Error
	return sales, err
}

func (r *saleRepo) ListPage(ctx context.Context, limit, offset int) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Sale{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.WithContext(ctx).Preload("Product").Preload("User").
		Order("sale_time DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&sales).Error
	return sales, total, err
}

func (r *saleRepo) ListRecent(ctx context.Context, limit int) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.WithContext(ctx).Preload("Product").
		Order("sale_time DESC, id DESC").
		Limit(limit).
		Find(&sales).Error
	return sales, err
}

func (r *saleRepo) SummaryBetween(ctx context.Context, from, to time.Time) (int64, decimal.Decimal, error) {
	var row struct {
		Count int64
		Total decimal.NullDecimal
	}
	err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select("COUNT(*) AS count, SUM(total_amount) AS total").
		Where("sale_time >= ? AND sale_time < ?", from, to).
		Scan(&row).Error
	if err != nil {
		return 0, decimal.Zero, err
	}
	if !row.Total.Valid {
		return row.Count, decimal.Zero, nil
	}
	return row.Count, row.Total.Decimal, nil
}

func (r *saleRepo) DailyTotalsSince(ctx context.Context, since time.Time) ([]DailyTotal, error) {
	var rows []DailyTotal
	err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select("DATE(sale_time) AS day, SUM(total_amount) AS total").
		Where("sale_time >= ?", since).
		Group("DATE(sale_time)").
		Order("day").
		Scan(&rows).Error
	return rows, err
}

func (r *saleRepo) TopProducts(ctx context.Context, limit int) ([]ProductQuantity, error) {
	var rows []ProductQuantity
	err := r.db.WithContext(ctx).Table("sales s").
		Select("p.product_name AS product_name, SUM(s.quantity_sold) AS quantity").
		Joins("JOIN products p ON p.id = s.product_id").
		Group("p.id, p.product_name").
		Order("quantity DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
