package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kasirbutik/backend/internal/domain"
	"kasirbutik/backend/internal/report"
	"kasirbutik/backend/internal/store"
)

const monthlyWindowDays = 30

// Short weekday names in Indonesian, indexed by time.Weekday.
var dayNames = [...]string{"Min", "Sen", "Sel", "Rab", "Kam", "Jum", "Sab"}

// ListTransactions returns the log filtered to an inclusive date range.
// Either bound may be omitted.
func (s *Service) ListTransactions(ctx context.Context, startDate string, endDate string) ([]domain.TransactionLine, error) {
	startDate, endDate = strings.TrimSpace(startDate), strings.TrimSpace(endDate)
	if startDate != "" {
		if _, err := s.parseDate("start_date", startDate); err != nil {
			return nil, err
		}
	}
	if endDate != "" {
		if _, err := s.parseDate("end_date", endDate); err != nil {
			return nil, err
		}
	}
	if startDate != "" && endDate != "" && startDate > endDate {
		return nil, fmt.Errorf("%w: start_date is after end_date", store.ErrValidation)
	}

	lines, err := s.repo.ListTransactionLines(ctx)
	if err != nil {
		return nil, err
	}
	if startDate == "" && endDate == "" {
		return lines, nil
	}
	return filterLines(lines, startDate, endDate), nil
}

func (s *Service) SalesToday(ctx context.Context) (domain.DailySales, error) {
	lines, err := s.repo.ListTransactionLines(ctx)
	if err != nil {
		return domain.DailySales{}, err
	}
	return salesOn(lines, s.clock()), nil
}

func (s *Service) SalesWeekly(ctx context.Context) (domain.PeriodSales, error) {
	lines, err := s.repo.ListTransactionLines(ctx)
	if err != nil {
		return domain.PeriodSales{}, err
	}
	return weeklySales(lines, s.clock()), nil
}

func (s *Service) SalesMonthly(ctx context.Context) (domain.PeriodSales, error) {
	lines, err := s.repo.ListTransactionLines(ctx)
	if err != nil {
		return domain.PeriodSales{}, err
	}
	return monthlySales(lines, s.clock()), nil
}

// SalesSummary computes the three views from a single read of the log.
func (s *Service) SalesSummary(ctx context.Context) (domain.SalesSummary, error) {
	lines, err := s.repo.ListTransactionLines(ctx)
	if err != nil {
		return domain.SalesSummary{}, err
	}
	now := s.clock()
	return domain.SalesSummary{
		Today:   salesOn(lines, now),
		Weekly:  weeklySales(lines, now),
		Monthly: monthlySales(lines, now),
	}, nil
}

// BuildReport collects the lines for a report document.
func (s *Service) BuildReport(ctx context.Context, req domain.ReportRequest) (domain.SalesReport, error) {
	lines, err := s.ListTransactions(ctx, req.StartDate, req.EndDate)
	if err != nil {
		return domain.SalesReport{}, err
	}
	return domain.SalesReport{
		Title:       "Sales Report",
		PeriodLabel: report.PeriodLabel(req),
		GeneratedAt: s.clock(),
		Lines:       lines,
		Totals:      report.Totals(lines),
	}, nil
}

func salesOn(lines []domain.TransactionLine, now time.Time) domain.DailySales {
	date := now.Format(domain.DateLayout)
	day := filterLines(lines, date, date)
	return domain.DailySales{
		Date:         date,
		Totals:       report.Totals(day),
		Transactions: day,
	}
}

// weeklySales buckets the seven days ending today, oldest first.
func weeklySales(lines []domain.TransactionLine, now time.Time) domain.PeriodSales {
	buckets := make([]domain.SalesBucket, 0, 7)
	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		date := day.Format(domain.DateLayout)
		bucket := bucketOf(filterLines(lines, date, date))
		bucket.Date = date
		bucket.DayName = dayNames[day.Weekday()]
		buckets = append(buckets, bucket)
	}
	return domain.PeriodSales{Totals: sumBuckets(buckets), Buckets: buckets}
}

// monthlySales buckets four seven-day weeks starting thirty days ago.
func monthlySales(lines []domain.TransactionLine, now time.Time) domain.PeriodSales {
	buckets := make([]domain.SalesBucket, 0, 4)
	for week := 0; week < 4; week++ {
		start := now.AddDate(0, 0, -(monthlyWindowDays - week*7))
		end := start.AddDate(0, 0, 6)
		startDate, endDate := start.Format(domain.DateLayout), end.Format(domain.DateLayout)

		bucket := bucketOf(filterLines(lines, startDate, endDate))
		bucket.Week = week + 1
		bucket.StartDate = startDate
		bucket.EndDate = endDate
		buckets = append(buckets, bucket)
	}
	return domain.PeriodSales{Totals: sumBuckets(buckets), Buckets: buckets}
}

// filterLines keeps lines dated within [start, end]. Dates share one
// layout, so string order is calendar order. Empty bounds are open.
func filterLines(lines []domain.TransactionLine, start string, end string) []domain.TransactionLine {
	filtered := make([]domain.TransactionLine, 0)
	for _, l := range lines {
		if start != "" && l.Date < start {
			continue
		}
		if end != "" && l.Date > end {
			continue
		}
		filtered = append(filtered, l)
	}
	return filtered
}

func bucketOf(lines []domain.TransactionLine) domain.SalesBucket {
	t := report.Totals(lines)
	return domain.SalesBucket{
		Revenue:          t.Revenue,
		Profit:           t.Profit,
		ItemsSold:        t.ItemsSold,
		TransactionCount: t.TransactionCount,
	}
}

func sumBuckets(buckets []domain.SalesBucket) domain.SalesTotals {
	var t domain.SalesTotals
	for _, b := range buckets {
		t.Revenue += b.Revenue
		t.Profit += b.Profit
		t.ItemsSold += b.ItemsSold
		t.TransactionCount += b.TransactionCount
	}
	return t
}
