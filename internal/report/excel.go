package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"kasirbutik/backend/internal/domain"
)

const excelSheet = "Sales Report"

var excelColumns = []struct {
	header string
	width  float64
}{
	{"Date", 15},
	{"SKU", 15},
	{"Product", 30},
	{"Qty", 10},
	{"Price", 15},
	{"HPP", 15},
	{"Total", 15},
	{"Profit", 15},
}

// WriteExcel writes one row per transaction line under a styled header,
// then a blank row and a bold TOTAL row.
func WriteExcel(w io.Writer, r domain.SalesReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", excelSheet); err != nil {
		return err
	}

	header := make([]any, 0, len(excelColumns))
	for i, col := range excelColumns {
		header = append(header, col.header)
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(excelSheet, name, name, col.width); err != nil {
			return err
		}
	}
	if err := f.SetSheetRow(excelSheet, "A1", &header); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(excelSheet, "A1", "H1", headerStyle); err != nil {
		return err
	}

	row := 2
	for _, l := range r.Lines {
		values := []any{l.Date, l.SKU, l.ProductName, l.Qty, l.SellingPrice, l.CostPrice, l.LineTotal, l.LineProfit}
		if err := f.SetSheetRow(excelSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return err
		}
		row++
	}

	row++
	totals := []any{"TOTAL", "", "", r.Totals.ItemsSold, "", "", r.Totals.Revenue, r.Totals.Profit}
	totalCell := fmt.Sprintf("A%d", row)
	if err := f.SetSheetRow(excelSheet, totalCell, &totals); err != nil {
		return err
	}
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(excelSheet, totalCell, fmt.Sprintf("H%d", row), boldStyle); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}
