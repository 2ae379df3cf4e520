package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"stockpos/internal/dto"
	"stockpos/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	mimePDF  = "application/pdf"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type ReportsHandler struct{ svc service.ReportService }

func NewReportsHandler(svc service.ReportService) *ReportsHandler {
	return &ReportsHandler{svc: svc}
}

// Dashboard godoc
// @Summary Dashboard counters
// @Tags reports
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.DashboardResponse
// @Router /v1/dashboard [get]
func (h *ReportsHandler) Dashboard(c *gin.Context) {
	resp, err := h.svc.Dashboard(c.Request.Context())
	if err != nil {
		writeErrorWith(c, err, "An error occurred while loading the dashboard.")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SalesReport godoc
// @Summary Sales report for a date range
// @Tags reports
// @Security BearerAuth
// @Produce json
// @Param date_from query string false "YYYY-MM-DD, default today"
// @Param date_to query string false "YYYY-MM-DD, default today"
// @Success 200 {object} dto.SalesReportResponse
// @Router /v1/reports/sales [get]
func (h *ReportsHandler) SalesReport(c *gin.Context) {
	var filter dto.ReportFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.SalesReport(c.Request.Context(), filter)
	if err != nil {
		writeErrorWith(c, err, "An error occurred while generating the report.")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReportsHandler) ExportPDF(c *gin.Context) {
	h.export(c, h.svc.ExportPDF, mimePDF, "pdf")
}

func (h *ReportsHandler) ExportXLSX(c *gin.Context) {
	h.export(c, h.svc.ExportXLSX, mimeXLSX, "xlsx")
}

type exportFunc func(ctx context.Context, filter dto.ReportFilter, w io.Writer) error

// export renders into memory first so a failure still yields a JSON error.
func (h *ReportsHandler) export(c *gin.Context, fn exportFunc, mime, ext string) {
	var filter dto.ReportFilter
	if !bindQuery(c, &filter) {
		return
	}
	var buf bytes.Buffer
	if err := fn(c.Request.Context(), filter, &buf); err != nil {
		writeErrorWith(c, err, "An error occurred while generating the report.")
		return
	}
	name := fmt.Sprintf("sales-report-%s-%s.%s", orToday(filter.DateFrom), orToday(filter.DateTo), ext)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, mime, buf.Bytes())
}

func orToday(date string) string {
	if date == "" {
		return "today"
	}
	return date
}

// SalesData godoc
// @Summary Daily sales totals for charts
// @Tags reports
// @Security BearerAuth
// @Produce json
// @Param period path string true "week or month"
// @Success 200 {object} dto.ChartSeries
// @Failure 400 {object} apierror.APIError
// @Router /v1/api/sales_data/{period} [get]
func (h *ReportsHandler) SalesData(c *gin.Context) {
	resp, err := h.svc.SalesData(c.Request.Context(), c.Param("period"))
	if err != nil {
		writeErrorWith(c, err, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReportsHandler) TopProducts(c *gin.Context) {
	resp, err := h.svc.TopProducts(c.Request.Context())
	if err != nil {
		writeErrorWith(c, err, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReportsHandler) RecentSales(c *gin.Context) {
	resp, err := h.svc.RecentSales(c.Request.Context())
	if err != nil {
		writeErrorWith(c, err, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, resp)
}
