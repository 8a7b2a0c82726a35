package store

import (
	"context"
	"errors"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"

	"kasirbutik/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrUnsupportedMedia  = errors.New("unsupported media type")
	ErrUpstream          = errors.New("upstream service failure")
)

// UpstreamError wraps a failure of a remote collaborator (spreadsheet,
// database, object storage). It matches ErrUpstream and carries a stack.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// Upstream returns nil for a nil err.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Op: op, Err: pkgerrors.WithStack(err)}
}

// Repository is the tabular persistence used by the service layer. Every
// read returns a fresh copy of the table; implementations keep no
// cross-request row cache.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, sku string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	SetStock(ctx context.Context, sku string, qty int) error
	DeleteProduct(ctx context.Context, sku string) error

	AppendTransactionLine(ctx context.Context, line domain.TransactionLine) error
	ListTransactionLines(ctx context.Context) ([]domain.TransactionLine, error)

	ListDebts(ctx context.Context) ([]domain.Debt, error)
	GetDebt(ctx context.Context, id string) (*domain.Debt, error)
	CreateDebt(ctx context.Context, debt domain.Debt) (*domain.Debt, error)
	UpdateDebt(ctx context.Context, debt domain.Debt) (*domain.Debt, error)
	DeleteDebt(ctx context.Context, id string) error

	ListDashboardPeriods(ctx context.Context) ([]domain.DashboardPeriod, error)
}

// ParsePeriodLabel maps a free-text dashboard label such as "Hari Ini" or
// "7 Hari Terakhir" onto a period. First match wins.
func ParsePeriodLabel(label string) (domain.PeriodID, bool) {
	switch {
	case strings.Contains(label, "Today") || strings.Contains(label, "Hari Ini"):
		return domain.PeriodToday, true
	case strings.Contains(label, "7"):
		return domain.PeriodLast7Days, true
	case strings.Contains(label, "14"):
		return domain.PeriodLast14Days, true
	case strings.Contains(label, "21"):
		return domain.PeriodLast21Days, true
	case strings.Contains(label, "30"):
		return domain.PeriodLast30Days, true
	case strings.Contains(label, "Month") || strings.Contains(label, "Bulan"):
		return domain.PeriodMonthly, true
	}
	return "", false
}

// PeriodLabel is the label written for a period when a backend seeds its
// dashboard table.
func PeriodLabel(p domain.PeriodID) string {
	switch p {
	case domain.PeriodToday:
		return "Hari Ini"
	case domain.PeriodLast7Days:
		return "7 Hari"
	case domain.PeriodLast14Days:
		return "14 Hari"
	case domain.PeriodLast21Days:
		return "21 Hari"
	case domain.PeriodLast30Days:
		return "30 Hari"
	case domain.PeriodMonthly:
		return "Bulanan"
	}
	return string(p)
}

// windowDays is the length of each rolling dashboard window, today included.
var windowDays = map[domain.PeriodID]int{
	domain.PeriodToday:      1,
	domain.PeriodLast7Days:  7,
	domain.PeriodLast14Days: 14,
	domain.PeriodLast21Days: 21,
	domain.PeriodLast30Days: 30,
}

// ProfitWindows sums line profit over every dashboard period ending on
// now's calendar day. The monthly period is the calendar month of now.
func ProfitWindows(lines []domain.TransactionLine, now time.Time) []domain.DashboardPeriod {
	today := now.Format(domain.DateLayout)
	periods := make([]domain.DashboardPeriod, 0, len(domain.Periods))
	for _, id := range domain.Periods {
		from, to := today[:8]+"01", today[:8]+"31"
		if days, ok := windowDays[id]; ok {
			from, to = now.AddDate(0, 0, 1-days).Format(domain.DateLayout), today
		}
		var profit float64
		for _, line := range lines {
			if line.Date >= from && line.Date <= to {
				profit += line.LineProfit
			}
		}
		periods = append(periods, domain.DashboardPeriod{Period: id, Profit: profit})
	}
	return periods
}
