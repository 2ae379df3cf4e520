package infra

// pdf.go: sales report export using go-pdf/fpdf.
// A4 portrait page with:
//   - title and date range
//   - one row per sale (time, product, qty, unit price, total)
//   - summary block (count, units, amount)

import (
	"fmt"
	"io"

	"stockpos/internal/dto"

	"github.com/go-pdf/fpdf"
)

// GenerateSalesReportPDF writes the report as a PDF document to w.
func GenerateSalesReportPDF(w io.Writer, report *dto.SalesReportResponse) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 24
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 15)
	pdf.CellFormat(contentW, 8, "Sales Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, fmt.Sprintf("%s to %s", report.DateFrom, report.DateTo), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// ── Table ────────────────────────────────────────────────────────────────
	widths := []float64{contentW * 0.24, contentW * 0.36, contentW * 0.10, contentW * 0.15, contentW * 0.15}
	headers := []string{"Time", "Product", "Qty", "Unit price", "Total"}
	aligns := []string{"L", "L", "C", "R", "R"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "B", 0, aligns[i], true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range report.Sales {
		name := row.ProductName
		if len(name) > 40 {
			name = name[:39] + "..."
		}
		cells := []string{
			row.SaleTime,
			tr(name),
			fmt.Sprintf("%d", row.QuantitySold),
			row.UnitPrice.StringFixed(2),
			row.Total.StringFixed(2),
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 6, c, "", 0, aligns[i], false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(report.Sales) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(contentW, 6, "No sales in this period.", "", 1, "C", false, 0, "")
	}

	// ── Summary ──────────────────────────────────────────────────────────────
	pdf.Ln(2)
	pdf.Line(12, pdf.GetY(), pageW-12, pdf.GetY())
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 10)
	labelW := contentW * 0.70
	pdf.CellFormat(labelW, 6, "Sales:", "", 0, "R", false, 0, "")
	pdf.CellFormat(contentW-labelW, 6, fmt.Sprintf("%d", report.Summary.Count), "", 1, "R", false, 0, "")
	pdf.CellFormat(labelW, 6, "Units sold:", "", 0, "R", false, 0, "")
	pdf.CellFormat(contentW-labelW, 6, fmt.Sprintf("%d", report.Summary.TotalQuantity), "", 1, "R", false, 0, "")
	pdf.CellFormat(labelW, 6, "Total amount:", "", 0, "R", false, 0, "")
	pdf.CellFormat(contentW-labelW, 6, report.Summary.TotalAmount.StringFixed(2), "", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: write: %w", err)
	}
	return nil
}
