// Package report renders sales reports as downloadable documents.
package report

import (
	"fmt"
	"strconv"
	"time"

	"kasirbutik/backend/internal/domain"
)

const (
	ContentTypePDF   = "application/pdf"
	ContentTypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Filename returns "sales-report-<unix millis>.<ext>".
func Filename(at time.Time, ext string) string {
	return "sales-report-" + strconv.FormatInt(at.UnixMilli(), 10) + "." + ext
}

// PeriodLabel renders a requested range, using "All" for an open bound.
func PeriodLabel(req domain.ReportRequest) string {
	start, end := req.StartDate, req.EndDate
	if start == "" {
		start = "All"
	}
	if end == "" {
		end = "All"
	}
	return fmt.Sprintf("%s - %s", start, end)
}

func Totals(lines []domain.TransactionLine) domain.SalesTotals {
	var t domain.SalesTotals
	for _, l := range lines {
		t.Revenue += l.LineTotal
		t.Profit += l.LineProfit
		t.ItemsSold += l.Qty
	}
	t.TransactionCount = len(lines)
	return t
}
