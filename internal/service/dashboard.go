package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"kasirbutik/backend/internal/domain"
)

// lowStockThreshold marks products that need restocking.
const lowStockThreshold = 10

// DashboardStats reads the period profits and the catalog concurrently.
func (s *Service) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	var (
		periods  []domain.DashboardPeriod
		products []domain.Product
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		periods, err = s.repo.ListDashboardPeriods(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		products, err = s.repo.ListProducts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.DashboardStats{}, err
	}

	return domain.DashboardStats{
		Profits:   periods,
		Inventory: summarizeInventory(products),
	}, nil
}

// ProfitChart always returns one point per period in chart order; periods
// missing from the dashboard table read as zero.
func (s *Service) ProfitChart(ctx context.Context) ([]domain.ProfitChartPoint, error) {
	periods, err := s.repo.ListDashboardPeriods(ctx)
	if err != nil {
		return nil, err
	}
	profits := make(map[domain.PeriodID]float64, len(periods))
	for _, p := range periods {
		profits[p.Period] = p.Profit
	}

	points := make([]domain.ProfitChartPoint, 0, len(domain.Periods))
	for _, id := range domain.Periods {
		points = append(points, domain.ProfitChartPoint{
			Period: id,
			Label:  id.ChartLabel(),
			Profit: profits[id],
		})
	}
	return points, nil
}

func summarizeInventory(products []domain.Product) domain.InventorySummary {
	summary := domain.InventorySummary{
		TotalProducts:    len(products),
		LowStockProducts: make([]domain.Product, 0),
	}
	for _, p := range products {
		summary.TotalStock += p.CurrentStock
		if p.CurrentStock < lowStockThreshold {
			summary.LowStockProducts = append(summary.LowStockProducts, p)
		}
	}
	summary.LowStockCount = len(summary.LowStockProducts)
	return summary
}
