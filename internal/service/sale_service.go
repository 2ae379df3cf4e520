package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stockpos/internal/dto"
	"stockpos/internal/infra"
	"stockpos/internal/model"
	"stockpos/internal/repository"
	"stockpos/internal/worker"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
)

const instrumentationName = "stockpos/internal/service"

// DashboardCacheKey holds the cached dashboard summary. Every write that
// changes stock or sales invalidates it.
const DashboardCacheKey = "dashboard:summary"

// LowStockNotifier receives post-commit low stock signals. worker.Dispatcher
// implements it by pushing a job onto the alert queue.
type LowStockNotifier interface {
	EnqueueLowStock(ctx context.Context, payload worker.LowStockPayload) error
}

// SalePolicy carries the configurable business rules of the sale path.
type SalePolicy struct {
	LowStockThreshold int
	RequireActive     bool
	PageSize          int
}

const (
	msgSelectProduct   = "Please select a product and enter quantity."
	msgInvalidQuantity = "Please enter a valid quantity."
)

// ErrSaleFormIncomplete is returned when the product or quantity of a sale
// request is missing or the product cannot be read.
var ErrSaleFormIncomplete = invalidInput(msgSelectProduct)

// SaleCommand is one sale request. UserID is the authenticated acting user and
// is always supplied by the caller; the service never looks it up itself.
type SaleCommand struct {
	ProductID uint
	Quantity  int
	UserID    uint
}

// SaleResult is returned for a committed sale.
type SaleResult struct {
	Sale              model.Sale
	ProductName       string
	RemainingQuantity int
	Message           string
}

type SaleService interface {
	ProcessSale(ctx context.Context, cmd SaleCommand) (*SaleResult, error)
	SellableProducts(ctx context.Context) ([]dto.SellableProduct, error)
	History(ctx context.Context, page int) (*dto.SaleHistoryResponse, error)
}

type saleService struct {
	tx        repository.Transactor
	products  repository.ProductRepository
	sales     repository.SaleRepository
	movements repository.StockMovementRepository
	cache     *infra.Cache
	notifier  LowStockNotifier
	policy    SalePolicy
	now       func() time.Time

	salesCounter metric.Int64Counter
	unitsCounter metric.Int64Counter
}

func NewSaleService(
	tx repository.Transactor,
	products repository.ProductRepository,
	sales repository.SaleRepository,
	movements repository.StockMovementRepository,
	cache *infra.Cache,
	notifier LowStockNotifier,
	policy SalePolicy,
) SaleService {
	meter := otel.Meter(instrumentationName)
	salesCounter, _ := meter.Int64Counter("stockpos.sales.processed",
		metric.WithDescription("Sale attempts by outcome"))
	unitsCounter, _ := meter.Int64Counter("stockpos.sales.units",
		metric.WithDescription("Units sold in committed sales"))
	return &saleService{
		tx:           tx,
		products:     products,
		sales:        sales,
		movements:    movements,
		cache:        cache,
		notifier:     notifier,
		policy:       policy,
		now:          time.Now,
		salesCounter: salesCounter,
		unitsCounter: unitsCounter,
	}
}

// ParseSaleQuantity converts the raw form value into a sale quantity.
func ParseSaleQuantity(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalidInput(msgSelectProduct)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, invalidInput(msgInvalidQuantity)
	}
	return n, nil
}

// ParseID converts a raw identifier; missing, non-numeric and zero values
// are invalid input.
func ParseID(raw, field string) (uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalidInput(field + " is required.")
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, invalidInput(field + " is invalid.")
	}
	return uint(n), nil
}

// ParseSaleForm converts the raw product and quantity fields of a sale
// request. Either one missing, or a product that is not an id, is reported
// as the single "select a product" message the sale form shows.
func ParseSaleForm(productRaw, quantityRaw string) (uint, int, error) {
	if strings.TrimSpace(productRaw) == "" || strings.TrimSpace(quantityRaw) == "" {
		return 0, 0, ErrSaleFormIncomplete
	}
	productID, err := ParseID(productRaw, "Product")
	if err != nil {
		return 0, 0, ErrSaleFormIncomplete
	}
	quantity, err := ParseSaleQuantity(quantityRaw)
	if err != nil {
		return 0, 0, err
	}
	return productID, quantity, nil
}

func (c SaleCommand) validate() error {
	switch {
	case c.ProductID == 0:
		return invalidInput(msgSelectProduct)
	case c.UserID == 0:
		return invalidInput("Acting user is required.")
	case c.Quantity <= 0:
		return invalidInput(msgInvalidQuantity)
	}
	return nil
}

// ── ProcessSale ───────────────────────────────────────────────────────────────
// One unit of work per call:
//   1. SELECT ... FOR UPDATE on the product row
//   2. reject unknown / unavailable products and insufficient stock
//   3. decrement quantity, insert sale, insert "out" stock movement
//   4. COMMIT
// Side effects after commit (cache invalidation, low stock job) are best
// effort and never change the result.

func (s *saleService) ProcessSale(ctx context.Context, cmd SaleCommand) (*SaleResult, error) {
	if err := cmd.validate(); err != nil {
		s.record(ctx, "invalid_input")
		return nil, err
	}

	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "SaleService.ProcessSale")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("product_id", int64(cmd.ProductID)),
		attribute.Int64("user_id", int64(cmd.UserID)),
		attribute.Int("quantity", cmd.Quantity),
	)

	var result SaleResult
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		p, err := s.products.LockForUpdateTx(tx, cmd.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("Product not found.")
			}
			return err
		}
		if s.policy.RequireActive && !p.IsActive {
			return notFound(fmt.Sprintf("%s is not available for sale.", p.Name))
		}
		if p.Quantity < cmd.Quantity {
			return &InsufficientStockError{Available: p.Quantity}
		}

		now := s.now().UTC()
		total := p.Price.Mul(decimal.NewFromInt(int64(cmd.Quantity)))

		if err := s.products.DecrementQuantityTx(tx, p.ID, cmd.Quantity); err != nil {
			return err
		}
		sale := model.Sale{
			ProductID:    p.ID,
			UserID:       cmd.UserID,
			QuantitySold: cmd.Quantity,
			UnitPrice:    p.Price,
			TotalAmount:  total,
			SaleTime:     now,
		}
		if err := s.sales.CreateTx(tx, &sale); err != nil {
			return err
		}
		movement := model.StockMovement{
			ProductID:    p.ID,
			UserID:       cmd.UserID,
			MovementType: model.MovementOut,
			Quantity:     cmd.Quantity,
			Reason:       model.ReasonSale,
			MovementTime: now,
		}
		if err := s.movements.CreateTx(tx, &movement); err != nil {
			return err
		}

		result = SaleResult{
			Sale:              sale,
			ProductName:       p.Name,
			RemainingQuantity: p.Quantity - cmd.Quantity,
			Message:           fmt.Sprintf("Sale of %d %s processed successfully!", cmd.Quantity, p.Name),
		}
		return nil
	})
	if err != nil {
		err = storeUnavailable("process_sale", err)
		s.logRejected(cmd, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.record(ctx, outcome(err))
		return nil, err
	}

	s.record(ctx, "ok")
	if s.unitsCounter != nil {
		s.unitsCounter.Add(ctx, int64(cmd.Quantity))
	}
	log.Info().
		Uint("sale_id", result.Sale.ID).
		Uint("product_id", cmd.ProductID).
		Uint("user_id", cmd.UserID).
		Int("quantity", cmd.Quantity).
		Int("remaining", result.RemainingQuantity).
		Msg("sale processed")

	s.afterCommit(ctx, &result)
	return &result, nil
}

func (s *saleService) afterCommit(ctx context.Context, r *SaleResult) {
	s.cache.Invalidate(ctx, DashboardCacheKey)

	if s.notifier == nil || r.RemainingQuantity >= s.policy.LowStockThreshold {
		return
	}
	payload := worker.LowStockPayload{
		Source: worker.LowStockSourceSale,
		Items: []worker.LowStockItem{{
			ProductID:   r.Sale.ProductID,
			ProductName: r.ProductName,
			Quantity:    r.RemainingQuantity,
		}},
		Threshold: s.policy.LowStockThreshold,
	}
	if err := s.notifier.EnqueueLowStock(ctx, payload); err != nil {
		log.Warn().Err(err).Uint("product_id", r.Sale.ProductID).Msg("low stock job not enqueued")
	}
}

func (s *saleService) logRejected(cmd SaleCommand, err error) {
	if errors.Is(err, ErrStoreUnavailable) {
		return // already logged by storeUnavailable
	}
	ev := log.Warn().
		Uint("product_id", cmd.ProductID).
		Uint("user_id", cmd.UserID).
		Int("quantity", cmd.Quantity)
	var stock *InsufficientStockError
	if errors.As(err, &stock) {
		ev = ev.Int("available", stock.Available)
	}
	ev.Str("reason", UserMessage(err)).Msg("sale rejected")
}

func (s *saleService) record(ctx context.Context, result string) {
	if s.salesCounter == nil {
		return
	}
	s.salesCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", result)))
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "store_unavailable"
	}
}

// ── Read side ─────────────────────────────────────────────────────────────────

func (s *saleService) SellableProducts(ctx context.Context) ([]dto.SellableProduct, error) {
	products, err := s.products.ListSellable(ctx, s.policy.RequireActive)
	if err != nil {
		return nil, storeUnavailable("list_sellable", err)
	}
	resp := make([]dto.SellableProduct, len(products))
	for i, p := range products {
		resp[i] = dto.SellableProduct{ID: p.ID, Name: p.Name, Price: p.Price, Quantity: p.Quantity}
	}
	return resp, nil
}

// History returns every sale newest first, one page at a time, with the
// seller's email.
func (s *saleService) History(ctx context.Context, page int) (*dto.SaleHistoryResponse, error) {
	page, offset := pageBounds(page, s.policy.PageSize)
	sales, total, err := s.sales.ListPage(ctx, s.policy.PageSize, offset)
	if err != nil {
		return nil, storeUnavailable("sales_history", err)
	}
	items := make([]dto.SaleHistoryItem, len(sales))
	for i, sale := range sales {
		item := dto.SaleHistoryItem{
			ID:           sale.ID,
			QuantitySold: sale.QuantitySold,
			UnitPrice:    sale.UnitPrice,
			TotalAmount:  sale.TotalAmount,
			SaleTime:     sale.SaleTime.Format(time.RFC3339),
		}
		if sale.Product != nil {
			item.ProductName = sale.Product.Name
		}
		if sale.User != nil {
			item.SoldBy = sale.User.Email
		}
		items[i] = item
	}
	return &dto.SaleHistoryResponse{
		Data:  items,
		Total: total,
		Page:  page,
		Pages: pageCount(total, s.policy.PageSize),
	}, nil
}
