package infra

import (
	"fmt"
	"io"

	"stockpos/internal/dto"

	"github.com/xuri/excelize/v2"
)

const salesSheet = "Sales"

// GenerateSalesReportXLSX writes the report as a single-sheet workbook to w.
// Amounts are written as numbers so the sheet can be summed.
func GenerateSalesReportXLSX(w io.Writer, report *dto.SalesReportResponse) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", salesSheet); err != nil {
		return err
	}

	headers := []interface{}{"ID", "Time", "Product", "Quantity", "Unit price", "Total"}
	if err := f.SetSheetRow(salesSheet, "A1", &headers); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(salesSheet, "A1", "F1", bold); err != nil {
		return err
	}

	for i, row := range report.Sales {
		unit, _ := row.UnitPrice.Float64()
		total, _ := row.Total.Float64()
		values := []interface{}{row.ID, row.SaleTime, row.ProductName, row.QuantitySold, unit, total}
		if err := f.SetSheetRow(salesSheet, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return err
		}
	}

	summaryRow := len(report.Sales) + 3
	amount, _ := report.Summary.TotalAmount.Float64()
	summary := []struct {
		label string
		value interface{}
	}{
		{"Sales", report.Summary.Count},
		{"Units sold", report.Summary.TotalQuantity},
		{"Total amount", amount},
		{"From", report.DateFrom},
		{"To", report.DateTo},
	}
	for i, s := range summary {
		row := []interface{}{s.label, s.value}
		if err := f.SetSheetRow(salesSheet, fmt.Sprintf("E%d", summaryRow+i), &row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(salesSheet, "B", "C", 24)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}
