package repository

import (
	"context"

	"stockpos/internal/model"

	"gorm.io/gorm"
)

// MovementQuery drives List; zero values mean "no filter".
type MovementQuery struct {
	ProductID uint
	Type      string
	Limit     int
	Offset    int
}

type StockMovementRepository interface {
	CreateTx(tx *gorm.DB, m *model.StockMovement) error
	List(ctx context.Context, q MovementQuery) ([]model.StockMovement, int64, error)
}

type stockMovementRepo struct{ db *gorm.DB }

func NewStockMovementRepository(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepo{db: db}
}

func (r *stockMovementRepo) CreateTx(tx *gorm.DB, m *model.StockMovement) error {
	return tx.Omit("Product").Create(m).Error
}

func (r *stockMovementRepo) List(ctx context.Context, q MovementQuery) ([]model.StockMovement, int64, error) {
	var movements []model.StockMovement
	var total int64

	db := r.db.WithContext(ctx).Model(&model.StockMovement{})
	if q.ProductID != 0 {
		db = db.Where("product_id = ?", q.ProductID)
	}
	if q.Type != "" {
		db = db.Where("movement_type = ?", q.Type)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Preload("Product").
		Order("movement_time DESC, id DESC").
		Limit(q.Limit).Offset(q.Offset).
		Find(&movements).Error
	return movements, total, err
}
