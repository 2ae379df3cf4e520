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

// sortColumns whitelists the product list sort keys; anything else sorts by id.
var sortColumns = map[string]string{
	"id":           "id",
	"product_name": "product_name",
	"price":        "price",
	"quantity":     "quantity",
	"created_at":   "created_at",
}

type ProductService interface {
	Create(ctx context.Context, userID uint, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	Get(ctx context.Context, id uint) (*dto.ProductResponse, error)
	Update(ctx context.Context, id, userID uint, req dto.UpdateProductRequest) (*dto.ProductResponse, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error)
}

const msgProductFieldsRequired = "Product name, price, and quantity are required."

type productService struct {
	tx         repository.Transactor
	repo       repository.ProductRepository
	categories repository.CategoryRepository
	movements  repository.StockMovementRepository
	cache      *infra.Cache
	policy     SalePolicy
	now        func() time.Time
}

func NewProductService(
	tx repository.Transactor,
	repo repository.ProductRepository,
	categories repository.CategoryRepository,
	movements repository.StockMovementRepository,
	cache *infra.Cache,
	policy SalePolicy,
) ProductService {
	return &productService{
		tx:         tx,
		repo:       repo,
		categories: categories,
		movements:  movements,
		cache:      cache,
		policy:     policy,
		now:        time.Now,
	}
}

func (s *productService) Create(ctx context.Context, userID uint, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.Price == nil || req.Quantity == nil {
		return nil, invalidInput(msgProductFieldsRequired)
	}
	if req.Price.IsNegative() || *req.Quantity < 0 {
		return nil, invalidInput("Price and quantity cannot be negative.")
	}
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}
	p := &model.Product{
		Name:        name,
		Price:       *req.Price,
		Quantity:    *req.Quantity,
		IsActive:    true,
		CategoryID:  req.CategoryID,
		Description: req.Description,
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if userID != 0 {
		p.UserID = &userID
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, storeUnavailable("create_product", err)
	}
	s.cache.Invalidate(ctx, DashboardCacheKey)
	log.Info().Uint("product_id", p.ID).Uint("user_id", userID).Msg("product created")
	return s.Get(ctx, p.ID)
}

func (s *productService) Get(ctx context.Context, id uint) (*dto.ProductResponse, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(p)
	return &resp, nil
}

// Update replaces the editable fields under the product row lock. A quantity
// different from the stored one is applied as a delta and recorded as an
// Adjustment movement, so a sale committed meanwhile is never overwritten.
func (s *productService) Update(ctx context.Context, id, userID uint, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.Price == nil || req.Quantity == nil {
		return nil, invalidInput(msgProductFieldsRequired)
	}
	if req.Price.IsNegative() || *req.Quantity < 0 {
		return nil, invalidInput("Price and quantity cannot be negative.")
	}
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	var delta int
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		p, err := s.repo.LockForUpdateTx(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("Product not found.")
			}
			return err
		}
		p.Name = name
		p.Price = *req.Price
		p.CategoryID = req.CategoryID
		p.Description = req.Description
		if req.IsActive != nil {
			p.IsActive = *req.IsActive
		}
		if err := s.repo.UpdateDetailsTx(tx, p); err != nil {
			return err
		}

		delta = *req.Quantity - p.Quantity
		if delta == 0 {
			return nil
		}
		if userID == 0 {
			return invalidInput("Acting user is required.")
		}
		movement := model.StockMovement{
			ProductID:    p.ID,
			UserID:       userID,
			MovementType: model.MovementIn,
			Quantity:     delta,
			Reason:       model.ReasonAdjustment,
			MovementTime: s.now().UTC(),
		}
		if delta > 0 {
			err = s.repo.IncrementQuantityTx(tx, p.ID, delta)
		} else {
			movement.MovementType = model.MovementOut
			movement.Quantity = -delta
			err = s.repo.DecrementQuantityTx(tx, p.ID, -delta)
		}
		if err != nil {
			return err
		}
		return s.movements.CreateTx(tx, &movement)
	})
	if err != nil {
		return nil, storeUnavailable("update_product", err)
	}

	s.cache.Invalidate(ctx, DashboardCacheKey)
	if delta != 0 {
		log.Info().
			Uint("product_id", id).
			Uint("user_id", userID).
			Int("delta", delta).
			Msg("stock adjusted")
	}
	return s.Get(ctx, id)
}

func (s *productService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("Product not found.")
		}
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return invalidInput("Product has sales or stock movements and cannot be deleted; deactivate it instead.")
		}
		return storeUnavailable("delete_product", err)
	}
	s.cache.Invalidate(ctx, DashboardCacheKey)
	log.Info().Uint("product_id", id).Msg("product deleted")
	return nil
}

func (s *productService) List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	sort, ok := sortColumns[filter.Sort]
	if !ok {
		sort = "id"
	}
	order := "asc"
	if strings.EqualFold(filter.Order, "desc") {
		order = "desc"
	}
	page, offset := pageBounds(filter.Page, s.policy.PageSize)
	search := strings.TrimSpace(filter.Search)

	products, total, err := s.repo.List(ctx, repository.ProductQuery{
		Search: search,
		Sort:   sort,
		Desc:   order == "desc",
		Limit:  s.policy.PageSize,
		Offset: offset,
	})
	if err != nil {
		return nil, storeUnavailable("list_products", err)
	}

	data := make([]dto.ProductResponse, len(products))
	for i := range products {
		data[i] = s.toResponse(&products[i])
	}
	return &dto.ProductListResponse{
		Data:   data,
		Total:  total,
		Page:   page,
		Pages:  pageCount(total, s.policy.PageSize),
		Search: search,
		Sort:   sort,
		Order:  order,
	}, nil
}

func (s *productService) find(ctx context.Context, id uint) (*model.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Product not found.")
		}
		return nil, storeUnavailable("find_product", err)
	}
	return p, nil
}

func (s *productService) checkCategory(ctx context.Context, id *uint) error {
	if id == nil {
		return nil
	}
	if _, err := s.categories.FindByID(ctx, *id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("Category not found.")
		}
		return storeUnavailable("find_category", err)
	}
	return nil
}

func (s *productService) toResponse(p *model.Product) dto.ProductResponse {
	resp := dto.ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Quantity:    p.Quantity,
		IsActive:    p.IsActive,
		CategoryID:  p.CategoryID,
		Description: p.Description,
		LowStock:    p.Quantity < s.policy.LowStockThreshold,
	}
	if p.Category != nil {
		name := p.Category.Name
		resp.CategoryName = &name
	}
	return resp
}
