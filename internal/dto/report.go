package dto

import "github.com/shopspring/decimal"

// ReportFilter is bound from the query string of GET /v1/reports/sales.
// Empty dates default to today.
type ReportFilter struct {
	DateFrom string `form:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo   string `form:"date_to"   validate:"omitempty,datetime=2006-01-02"`
}

type DashboardResponse struct {
	TotalProducts   int64           `json:"total_products"`
	LowStock        int64           `json:"low_stock"`
	DailySalesCount int64           `json:"daily_sales_count"`
	DailySalesTotal decimal.Decimal `json:"daily_sales_total"`
}

type SalesReportRow struct {
	ID           uint            `json:"id"`
	ProductName  string          `json:"product_name"`
	QuantitySold int             `json:"quantity_sold"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Total        decimal.Decimal `json:"total"`
	SaleTime     string          `json:"sale_time"`
}

type SalesReportSummary struct {
	Count         int64           `json:"count"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalQuantity int64           `json:"total_quantity"`
}

type SalesReportResponse struct {
	DateFrom string             `json:"date_from"`
	DateTo   string             `json:"date_to"`
	Sales    []SalesReportRow   `json:"sales"`
	Summary  SalesReportSummary `json:"summary"`
}

// ChartSeries is the labels/values shape consumed by the dashboard charts.
type ChartSeries struct {
	Labels []string      `json:"labels"`
	Values []interface{} `json:"values"`
}

type RecentSale struct {
	Product  string          `json:"product"`
	Quantity int             `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
	Time     string          `json:"time"`
}
