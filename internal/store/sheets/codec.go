package sheets

import (
	"strconv"
	"strings"
	"time"

	"kasirbutik/backend/internal/domain"
	"kasirbutik/backend/internal/money"
)

// Status labels as they appear in the debt sheet.
const (
	statusActive  = "Aktif"
	statusPaidOff = "Lunas"
	statusOverdue = "Jatuh Tempo"
)

var dateLayouts = []string{
	domain.DateLayout,
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
}

func productFromRow(row []any) domain.Product {
	return domain.Product{
		SKU:          cellString(row, 0),
		Name:         cellString(row, 1),
		CostPrice:    cellFloat(row, 2),
		SellingPrice: cellFloat(row, 3),
		InitialStock: cellInt(row, 4),
		CurrentStock: cellInt(row, 5),
		ImageURL:     cellString(row, 6),
	}
}

func productToRow(p domain.Product) []any {
	return []any{p.SKU, p.Name, p.CostPrice, p.SellingPrice, p.InitialStock, p.CurrentStock, p.ImageURL}
}

func lineFromRow(row []any) domain.TransactionLine {
	return domain.TransactionLine{
		Date:         normalizeDate(cellString(row, 0)),
		SKU:          cellString(row, 1),
		ProductName:  cellString(row, 2),
		Qty:          cellInt(row, 3),
		SellingPrice: cellFloat(row, 4),
		CostPrice:    cellFloat(row, 5),
		LineTotal:    cellFloat(row, 6),
		LineProfit:   cellFloat(row, 7),
	}
}

func lineToRow(l domain.TransactionLine) []any {
	return []any{l.Date, l.SKU, l.ProductName, l.Qty, l.SellingPrice, l.CostPrice, l.LineTotal, l.LineProfit}
}

func debtFromRow(row []any) domain.Debt {
	d := domain.Debt{
		ID:                 cellString(row, 0),
		DebtorName:         cellString(row, 1),
		TotalDebt:          cellFloat(row, 2),
		RemainingBalance:   cellFloat(row, 3),
		MonthlyInstallment: cellFloat(row, 4),
		CreatedDate:        normalizeDate(cellString(row, 5)),
		DueDate:            normalizeDate(cellString(row, 6)),
		Notes:              cellString(row, 8),
		PaymentHistory:     parseHistory(cellString(row, 9)),
	}
	d.Status = parseStatus(cellString(row, 7), d.RemainingBalance)
	return d
}

func debtToRow(d domain.Debt) []any {
	return []any{
		d.ID,
		d.DebtorName,
		d.TotalDebt,
		d.RemainingBalance,
		d.MonthlyInstallment,
		d.CreatedDate,
		d.DueDate,
		statusLabel(d.Status),
		d.Notes,
		formatHistory(d.PaymentHistory),
	}
}

func statusLabel(s domain.DebtStatus) string {
	switch s {
	case domain.DebtPaidOff:
		return statusPaidOff
	case domain.DebtOverdue:
		return statusOverdue
	}
	return statusActive
}

func parseStatus(label string, remaining float64) domain.DebtStatus {
	switch strings.TrimSpace(label) {
	case statusPaidOff:
		return domain.DebtPaidOff
	case statusOverdue:
		return domain.DebtOverdue
	case statusActive:
		return domain.DebtActive
	}
	if remaining <= 0 {
		return domain.DebtPaidOff
	}
	return domain.DebtActive
}

// formatHistory renders "2024-06-01: Rp50.000; 2024-07-01: Rp25.000".
func formatHistory(history []domain.Payment) string {
	parts := make([]string, 0, len(history))
	for _, p := range history {
		parts = append(parts, p.Date+": "+money.Rupiah(p.Amount))
	}
	return strings.Join(parts, "; ")
}

func parseHistory(raw string) []domain.Payment {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var history []domain.Payment
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		date, amount, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		history = append(history, domain.Payment{
			Date:   strings.TrimSpace(date),
			Amount: money.ParseFormatted(amount),
		})
	}
	return history
}

func cellString(row []any, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	switch v := row[i].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	}
	return ""
}

// cellFloat reads a numeric cell. Unformatted reads return float64; cells
// typed as text fall back to id-ID parsing.
func cellFloat(row []any, i int) float64 {
	if i >= len(row) || row[i] == nil {
		return 0
	}
	switch v := row[i].(type) {
	case float64:
		return v
	case string:
		return money.ParseFormatted(v)
	}
	return 0
}

func cellInt(row []any, i int) int {
	return int(cellFloat(row, i))
}

func normalizeDate(raw string) string {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(domain.DateLayout)
		}
	}
	return raw
}
