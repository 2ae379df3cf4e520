package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"stockpos/internal/dto"
	"stockpos/internal/infra"
	"stockpos/internal/model"
	"stockpos/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const defaultRestockReason = "Restock"

// RestockCommand adds stock to one product on behalf of UserID.
type RestockCommand struct {
	ProductID uint
	Quantity  int
	Reason    string
	UserID    uint
}

// InventoryService owns every stock change that is not a sale.
type InventoryService interface {
	Restock(ctx context.Context, cmd RestockCommand) (*dto.RestockResponse, error)
	ListMovements(ctx context.Context, filter dto.MovementFilter) (*dto.StockMovementListResponse, error)
	LowStock(ctx context.Context, limit int) ([]dto.LowStockItem, error)
}

type inventoryService struct {
	tx        repository.Transactor
	products  repository.ProductRepository
	movements repository.StockMovementRepository
	cache     *infra.Cache
	policy    SalePolicy
	now       func() time.Time
}

func NewInventoryService(
	tx repository.Transactor,
	products repository.ProductRepository,
	movements repository.StockMovementRepository,
	cache *infra.Cache,
	policy SalePolicy,
) InventoryService {
	return &inventoryService{tx: tx, products: products, movements: movements, cache: cache, policy: policy, now: time.Now}
}

// Restock uses the same locked unit of work as the sale path: the product row
// is locked, the quantity incremented and an "in" movement appended, all or
// nothing.
func (s *inventoryService) Restock(ctx context.Context, cmd RestockCommand) (*dto.RestockResponse, error) {
	switch {
	case cmd.ProductID == 0:
		return nil, invalidInput("Product is required.")
	case cmd.UserID == 0:
		return nil, invalidInput("Acting user is required.")
	case cmd.Quantity <= 0:
		return nil, invalidInput(msgInvalidQuantity)
	}
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		reason = defaultRestockReason
	}

	var resp dto.RestockResponse
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		p, err := s.products.LockForUpdateTx(tx, cmd.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("Product not found.")
			}
			return err
		}
		if err := s.products.IncrementQuantityTx(tx, p.ID, cmd.Quantity); err != nil {
			return err
		}
		movement := model.StockMovement{
			ProductID:    p.ID,
			UserID:       cmd.UserID,
			MovementType: model.MovementIn,
			Quantity:     cmd.Quantity,
			Reason:       reason,
			MovementTime: s.now().UTC(),
		}
		if err := s.movements.CreateTx(tx, &movement); err != nil {
			return err
		}
		resp = dto.RestockResponse{
			ProductID:   p.ID,
			ProductName: p.Name,
			Added:       cmd.Quantity,
			NewQuantity: p.Quantity + cmd.Quantity,
		}
		return nil
	})
	if err != nil {
		return nil, storeUnavailable("restock", err)
	}

	s.cache.Invalidate(ctx, DashboardCacheKey)
	log.Info().
		Uint("product_id", cmd.ProductID).
		Uint("user_id", cmd.UserID).
		Int("quantity", cmd.Quantity).
		Int("new_quantity", resp.NewQuantity).
		Msg("stock replenished")
	return &resp, nil
}

func (s *inventoryService) ListMovements(ctx context.Context, filter dto.MovementFilter) (*dto.StockMovementListResponse, error) {
	page, offset := pageBounds(filter.Page, s.policy.PageSize)
	movements, total, err := s.movements.List(ctx, repository.MovementQuery{
		ProductID: filter.ProductID,
		Type:      filter.Type,
		Limit:     s.policy.PageSize,
		Offset:    offset,
	})
	if err != nil {
		return nil, storeUnavailable("list_movements", err)
	}

	data := make([]dto.StockMovementResponse, len(movements))
	for i, m := range movements {
		item := dto.StockMovementResponse{
			ID:           m.ID,
			ProductID:    m.ProductID,
			UserID:       m.UserID,
			MovementType: m.MovementType,
			Quantity:     m.Quantity,
			Reason:       m.Reason,
			MovementTime: m.MovementTime.Format(time.RFC3339),
		}
		if m.Product != nil {
			item.ProductName = m.Product.Name
		}
		data[i] = item
	}
	return &dto.StockMovementListResponse{
		Data:  data,
		Total: total,
		Page:  page,
		Pages: pageCount(total, s.policy.PageSize),
	}, nil
}

// LowStock lists products under the threshold, emptiest first. limit <= 0
// returns all of them.
func (s *inventoryService) LowStock(ctx context.Context, limit int) ([]dto.LowStockItem, error) {
	products, err := s.products.ListBelow(ctx, s.policy.LowStockThreshold, limit)
	if err != nil {
		return nil, storeUnavailable("low_stock", err)
	}
	items := make([]dto.LowStockItem, len(products))
	for i, p := range products {
		items[i] = dto.LowStockItem{ID: p.ID, Product: p.Name, Stock: p.Quantity}
	}
	return items, nil
}
