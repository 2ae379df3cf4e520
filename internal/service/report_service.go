package service

import (
	"context"
	"io"
	"time"

	"stockpos/internal/dto"
	"stockpos/internal/infra"
	"stockpos/internal/repository"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	dateLayout       = "2006-01-02"
	dashboardListLen = 5
)

var chartPeriods = map[string]int{
	"week":  7,
	"month": 30,
}

// ReportService is the read-only side: dashboard, sales report with exports
// and the chart APIs.
type ReportService interface {
	Dashboard(ctx context.Context) (*dto.DashboardResponse, error)
	SalesReport(ctx context.Context, filter dto.ReportFilter) (*dto.SalesReportResponse, error)
	ExportPDF(ctx context.Context, filter dto.ReportFilter, w io.Writer) error
	ExportXLSX(ctx context.Context, filter dto.ReportFilter, w io.Writer) error
	SalesData(ctx context.Context, period string) (*dto.ChartSeries, error)
	TopProducts(ctx context.Context) (*dto.ChartSeries, error)
	RecentSales(ctx context.Context) ([]dto.RecentSale, error)
}

type reportService struct {
	products repository.ProductRepository
	sales    repository.SaleRepository
	cache    *infra.Cache
	cacheTTL time.Duration
	policy   SalePolicy
	now      func() time.Time
}

func NewReportService(
	products repository.ProductRepository,
	sales repository.SaleRepository,
	cache *infra.Cache,
	cacheTTL time.Duration,
	policy SalePolicy,
) ReportService {
	return &reportService{
		products: products,
		sales:    sales,
		cache:    cache,
		cacheTTL: cacheTTL,
		policy:   policy,
		now:      time.Now,
	}
}

func (s *reportService) today() time.Time {
	n := s.now().UTC()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

// Dashboard runs its three aggregates concurrently and caches the result.
// The cache write is skipped when a stock or sale write invalidated the key
// while the aggregates were running.
func (s *reportService) Dashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	var resp dto.DashboardResponse
	if s.cache.GetJSON(ctx, DashboardCacheKey, &resp) {
		return &resp, nil
	}
	gen := s.cache.Generation(ctx, DashboardCacheKey)

	from := s.today()
	to := from.AddDate(0, 0, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.products.Count(gctx)
		resp.TotalProducts = n
		return err
	})
	g.Go(func() error {
		n, err := s.products.CountBelow(gctx, s.policy.LowStockThreshold)
		resp.LowStock = n
		return err
	})
	g.Go(func() error {
		count, total, err := s.sales.SummaryBetween(gctx, from, to)
		resp.DailySalesCount = count
		resp.DailySalesTotal = total
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeUnavailable("dashboard", err)
	}

	s.cache.SetJSONIfCurrent(ctx, DashboardCacheKey, resp, s.cacheTTL, gen)
	return &resp, nil
}

// reportRange resolves the inclusive date filter to a half-open [from, to)
// interval. Empty bounds default to today.
func (s *reportService) reportRange(filter dto.ReportFilter) (time.Time, time.Time, error) {
	today := s.today()
	from, to := today, today
	var err error
	if filter.DateFrom != "" {
		if from, err = time.ParseInLocation(dateLayout, filter.DateFrom, time.UTC); err != nil {
			return time.Time{}, time.Time{}, invalidInput("date_from must be YYYY-MM-DD.")
		}
	}
	if filter.DateTo != "" {
		if to, err = time.ParseInLocation(dateLayout, filter.DateTo, time.UTC); err != nil {
			return time.Time{}, time.Time{}, invalidInput("date_to must be YYYY-MM-DD.")
		}
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, invalidInput("date_from must not be after date_to.")
	}
	return from, to.AddDate(0, 0, 1), nil
}

func (s *reportService) SalesReport(ctx context.Context, filter dto.ReportFilter) (*dto.SalesReportResponse, error) {
	from, to, err := s.reportRange(filter)
	if err != nil {
		return nil, err
	}
	sales, err := s.sales.ListBetween(ctx, from, to)
	if err != nil {
		return nil, storeUnavailable("sales_report", err)
	}

	resp := &dto.SalesReportResponse{
		DateFrom: from.Format(dateLayout),
		DateTo:   to.AddDate(0, 0, -1).Format(dateLayout),
		Sales:    make([]dto.SalesReportRow, len(sales)),
		Summary:  dto.SalesReportSummary{TotalAmount: decimal.Zero},
	}
	for i, sale := range sales {
		row := dto.SalesReportRow{
			ID:           sale.ID,
			QuantitySold: sale.QuantitySold,
			UnitPrice:    sale.UnitPrice,
			Total:        sale.TotalAmount,
			SaleTime:     sale.SaleTime.Format(time.RFC3339),
		}
		if sale.Product != nil {
			row.ProductName = sale.Product.Name
		}
		resp.Sales[i] = row
		resp.Summary.TotalAmount = resp.Summary.TotalAmount.Add(sale.TotalAmount)
		resp.Summary.TotalQuantity += int64(sale.QuantitySold)
	}
	resp.Summary.Count = int64(len(sales))
	return resp, nil
}

func (s *reportService) ExportPDF(ctx context.Context, filter dto.ReportFilter, w io.Writer) error {
	report, err := s.SalesReport(ctx, filter)
	if err != nil {
		return err
	}
	return infra.GenerateSalesReportPDF(w, report)
}

func (s *reportService) ExportXLSX(ctx context.Context, filter dto.ReportFilter, w io.Writer) error {
	report, err := s.SalesReport(ctx, filter)
	if err != nil {
		return err
	}
	return infra.GenerateSalesReportXLSX(w, report)
}

// SalesData returns daily sale totals over the last 7 ("week") or 30
// ("month") days.
func (s *reportService) SalesData(ctx context.Context, period string) (*dto.ChartSeries, error) {
	days, ok := chartPeriods[period]
	if !ok {
		return nil, invalidInput("Period must be week or month.")
	}
	rows, err := s.sales.DailyTotalsSince(ctx, s.today().AddDate(0, 0, -days))
	if err != nil {
		return nil, storeUnavailable("sales_data", err)
	}
	series := &dto.ChartSeries{Labels: make([]string, len(rows)), Values: make([]interface{}, len(rows))}
	for i, r := range rows {
		series.Labels[i] = r.Day.Format(dateLayout)
		series.Values[i] = r.Total
	}
	return series, nil
}

func (s *reportService) TopProducts(ctx context.Context) (*dto.ChartSeries, error) {
	rows, err := s.sales.TopProducts(ctx, dashboardListLen)
	if err != nil {
		return nil, storeUnavailable("top_products", err)
	}
	series := &dto.ChartSeries{Labels: make([]string, len(rows)), Values: make([]interface{}, len(rows))}
	for i, r := range rows {
		series.Labels[i] = r.ProductName
		series.Values[i] = r.Quantity
	}
	return series, nil
}

func (s *reportService) RecentSales(ctx context.Context) ([]dto.RecentSale, error) {
	sales, err := s.sales.ListRecent(ctx, dashboardListLen)
	if err != nil {
		return nil, storeUnavailable("recent_sales", err)
	}
	out := make([]dto.RecentSale, len(sales))
	for i, sale := range sales {
		item := dto.RecentSale{
			Quantity: sale.QuantitySold,
			Amount:   sale.TotalAmount,
			Time:     sale.SaleTime.Format(time.RFC3339),
		}
		if sale.Product != nil {
			item.Product = sale.Product.Name
		}
		out[i] = item
	}
	return out, nil
}
