package repository

import (
	"context"
	"errors"

	"stockpos/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStockConflict is returned by DecrementQuantityTx when the guarded update
// matched no row, i.e. the quantity changed underneath a caller that did not
// hold the row lock.
var ErrStockConflict = errors.New("stock changed concurrently")

// ProductQuery drives List. Sort must already be whitelisted by the caller.
type ProductQuery struct {
	Search string
	Sort   string
	Desc   bool
	Limit  int
	Offset int
}

// ProductRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	List(ctx context.Context, q ProductQuery) ([]model.Product, int64, error)
	Delete(ctx context.Context, id uint) error
	ListSellable(ctx context.Context, activeOnly bool) ([]model.Product, error)
	ListBelow(ctx context.Context, threshold, limit int) ([]model.Product, error)
	Count(ctx context.Context) (int64, error)
	CountBelow(ctx context.Context, threshold int) (int64, error)

	// Used inside transactions, callers must pass the tx instance
	LockForUpdateTx(tx *gorm.DB, id uint) (*model.Product, error)
	DecrementQuantityTx(tx *gorm.DB, id uint, qty int) error
	IncrementQuantityTx(tx *gorm.DB, id uint, qty int) error
	UpdateDetailsTx(tx *gorm.DB, p *model.Product) error
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Preload("Category").First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) List(ctx context.Context, q ProductQuery) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Product{})
	if q.Search != "" {
		db = db.Where("LOWER(product_name) LIKE LOWER(?)", "%"+q.Search+"%")
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Category").
		Order(clause.OrderByColumn{Column: clause.Column{Name: q.Sort}, Desc: q.Desc}).
		Limit(q.Limit).Offset(q.Offset).
		Find(&products).Error
	return products, total, err
}

func (r *productRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListSellable returns products offered on the sale form: in stock and,
// when activeOnly is set, active.
func (r *productRepo) ListSellable(ctx context.Context, activeOnly bool) ([]model.Product, error) {
	var products []model.Product
	db := r.db.WithContext(ctx).Where("quantity > 0")
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}
	err := db.Order("product_name ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) ListBelow(ctx context.Context, threshold, limit int) ([]model.Product, error) {
	var products []model.Product
	db := r.db.WithContext(ctx).Where("quantity < ?", threshold).Order("quantity ASC, id ASC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	err := db.Find(&products).Error
	return products, err
}

func (r *productRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Count(&n).Error
	return n, err
}

func (r *productRepo) CountBelow(ctx context.Context, threshold int) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Where("quantity < ?", threshold).Count(&n).Error
	return n, err
}

// LockForUpdateTx reads the product row with SELECT ... FOR UPDATE. The lock is
// held until the surrounding transaction ends.
func (r *productRepo) LockForUpdateTx(tx *gorm.DB, id uint) (*model.Product, error) {
	var p model.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DecrementQuantityTx subtracts qty only while the stored quantity covers it.
func (r *productRepo) DecrementQuantityTx(tx *gorm.DB, id uint, qty int) error {
	res := tx.Model(&model.Product{}).
		Where("id = ? AND quantity >= ?", id, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStockConflict
	}
	return nil
}

func (r *productRepo) IncrementQuantityTx(tx *gorm.DB, id uint, qty int) error {
	res := tx.Model(&model.Product{}).
		Where("id = ?", id).
		Update("quantity", gorm.Expr("quantity + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateDetailsTx writes the editable catalog columns. Quantity is left to the
// Increment/Decrement helpers so every change to it has a movement.
func (r *productRepo) UpdateDetailsTx(tx *gorm.DB, p *model.Product) error {
	return tx.Model(&model.Product{ID: p.ID}).Updates(map[string]interface{}{
		"product_name": p.Name,
		"price":        p.Price,
		"is_active":    p.IsActive,
		"category":     p.CategoryID,
		"description":  p.Description,
	}).Error
}
