package report

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"kasirbutik/backend/internal/domain"
	"kasirbutik/backend/internal/money"
)

// WritePDF renders a header, a summary block and one entry per
// transaction line.
func WritePDF(w io.Writer, r domain.SalesReport) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(r.Title, true)
	pdf.SetCreationDate(r.GeneratedAt)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 10, tr(r.Title), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, tr("Period: "+r.PeriodLabel), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "BU", 14)
	pdf.CellFormat(0, 8, "Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Total Transactions: %d", r.Totals.TransactionCount), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Total Sales: "+money.Rupiah(r.Totals.Revenue), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Total Profit: "+money.Rupiah(r.Totals.Profit), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "BU", 14)
	pdf.CellFormat(0, 8, "Transaction Details", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	for i, l := range r.Lines {
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("%d. %s | %s (%s)", i+1, l.Date, l.ProductName, l.SKU)), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("   Qty: %d | Price: %s | Total: %s | Profit: %s",
			l.Qty, money.Rupiah(l.SellingPrice), money.Rupiah(l.LineTotal), money.Rupiah(l.LineProfit)), "", 1, "L", false, 0, "")
		pdf.Ln(1.5)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}
