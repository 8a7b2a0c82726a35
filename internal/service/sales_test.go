package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirbutik/backend/internal/domain"
	"kasirbutik/backend/internal/store"
)

// seedDailyLog writes one sale per day for the forty days ending on
// testNow: revenue 1000, profit 100, two items.
func seedDailyLog(t *testing.T, env testEnv) {
	t.Helper()
	for i := 39; i >= 0; i-- {
		require.NoError(t, env.repo.AppendTransactionLine(context.Background(), domain.TransactionLine{
			Date:         testNow.AddDate(0, 0, -i).Format(domain.DateLayout),
			SKU:          "BTK-005",
			ProductName:  "Bros Mutiara",
			Qty:          2,
			SellingPrice: 500,
			CostPrice:    450,
			LineTotal:    1000,
			LineProfit:   100,
		}))
	}
}

func TestSalesToday(t *testing.T) {
	env := newTestService(t)
	seedDailyLog(t, env)

	today, err := env.svc.SalesToday(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-10-17", today.Date)
	assert.Equal(t, domain.SalesTotals{Revenue: 1000, Profit: 100, ItemsSold: 2, TransactionCount: 1}, today.Totals)
	require.Len(t, today.Transactions, 1)
}

func TestSalesWeeklyBuckets(t *testing.T) {
	env := newTestService(t)
	seedDailyLog(t, env)

	weekly, err := env.svc.SalesWeekly(context.Background())
	require.NoError(t, err)
	require.Len(t, weekly.Buckets, 7)

	first, last := weekly.Buckets[0], weekly.Buckets[6]
	assert.Equal(t, "2026-10-11", first.Date)
	assert.Equal(t, "Min", first.DayName)
	assert.Equal(t, "2026-10-17", last.Date)
	assert.Equal(t, "Sab", last.DayName)
	for _, b := range weekly.Buckets {
		assert.Equal(t, 1000.0, b.Revenue)
		assert.Equal(t, 1, b.TransactionCount)
	}
	assert.Equal(t, domain.SalesTotals{Revenue: 7000, Profit: 700, ItemsSold: 14, TransactionCount: 7}, weekly.Totals)
}

func TestSalesMonthlyBuckets(t *testing.T) {
	env := newTestService(t)
	seedDailyLog(t, env)

	monthly, err := env.svc.SalesMonthly(context.Background())
	require.NoError(t, err)
	require.Len(t, monthly.Buckets, 4)

	wantRanges := [][2]string{
		{"2026-09-17", "2026-09-23"},
		{"2026-09-24", "2026-09-30"},
		{"2026-10-01", "2026-10-07"},
		{"2026-10-08", "2026-10-14"},
	}
	for i, b := range monthly.Buckets {
		assert.Equal(t, i+1, b.Week)
		assert.Equal(t, wantRanges[i][0], b.StartDate)
		assert.Equal(t, wantRanges[i][1], b.EndDate)
		assert.Equal(t, 7000.0, b.Revenue)
		assert.Equal(t, 7, b.TransactionCount)
	}
	assert.Equal(t, 28000.0, monthly.Totals.Revenue)
	assert.Equal(t, 28, monthly.Totals.TransactionCount)
}

func TestSalesSummaryMatchesViews(t *testing.T) {
	env := newTestService(t)
	seedDailyLog(t, env)
	ctx := context.Background()

	summary, err := env.svc.SalesSummary(ctx)
	require.NoError(t, err)

	weekly, err := env.svc.SalesWeekly(ctx)
	require.NoError(t, err)
	monthly, err := env.svc.SalesMonthly(ctx)
	require.NoError(t, err)

	today, err := env.svc.SalesToday(ctx)
	require.NoError(t, err)

	assert.Equal(t, today, summary.Today)
	require.Len(t, summary.Today.Transactions, 1)
	assert.Equal(t, "2026-10-17", summary.Today.Transactions[0].Date)

	assert.Equal(t, weekly, summary.Weekly)
	require.Len(t, summary.Weekly.Buckets, 7)
	assert.Equal(t, "Sab", summary.Weekly.Buckets[6].DayName)

	assert.Equal(t, monthly, summary.Monthly)
	require.Len(t, summary.Monthly.Buckets, 4)
	assert.Equal(t, "2026-09-17", summary.Monthly.Buckets[0].StartDate)
	assert.Equal(t, 28000.0, summary.Monthly.Totals.Revenue)
}

func TestListTransactionsRange(t *testing.T) {
	env := newTestService(t)
	seedDailyLog(t, env)
	ctx := context.Background()

	all, err := env.svc.ListTransactions(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 40)

	ranged, err := env.svc.ListTransactions(ctx, "2026-10-10", "2026-10-12")
	require.NoError(t, err)
	require.Len(t, ranged, 3)
	assert.Equal(t, "2026-10-10", ranged[0].Date)
	assert.Equal(t, "2026-10-12", ranged[2].Date)

	fromOnly, err := env.svc.ListTransactions(ctx, "2026-10-15", "")
	require.NoError(t, err)
	assert.Len(t, fromOnly, 3)

	_, err = env.svc.ListTransactions(ctx, "2026-10-12", "2026-10-10")
	assert.ErrorIs(t, err, store.ErrValidation)
	_, err = env.svc.ListTransactions(ctx, "10/10/2026", "")
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestBuildReport(t *testing.T) {
	env := newTestService(t)
	seedDailyLog(t, env)

	r, err := env.svc.BuildReport(context.Background(), domain.ReportRequest{StartDate: "2026-10-16"})
	require.NoError(t, err)
	assert.Equal(t, "Sales Report", r.Title)
	assert.Equal(t, "2026-10-16 - All", r.PeriodLabel)
	assert.Len(t, r.Lines, 2)
	assert.Equal(t, 2000.0, r.Totals.Revenue)
	assert.Equal(t, 4, r.Totals.ItemsSold)
}

func TestProfitChartFillsMissingPeriods(t *testing.T) {
	env := newTestService(t)
	env.repo.SetDashboardPeriods([]domain.DashboardPeriod{
		{Period: domain.PeriodMonthly, Profit: 900000},
		{Period: domain.PeriodToday, Profit: 45000},
	})

	points, err := env.svc.ProfitChart(context.Background())
	require.NoError(t, err)
	require.Len(t, points, 6)

	labels := make([]string, 0, len(points))
	for _, p := range points {
		labels = append(labels, p.Label)
	}
	assert.Equal(t, []string{"Today", "7 Days", "14 Days", "21 Days", "30 Days", "Monthly"}, labels)
	assert.Equal(t, 45000.0, points[0].Profit)
	assert.Zero(t, points[1].Profit)
	assert.Equal(t, 900000.0, points[5].Profit)
}

func TestDashboardStatsInventory(t *testing.T) {
	env := newTestService(t)
	seedProduct(t, env.svc, "A", 1000, 2000, 25)
	seedProduct(t, env.svc, "B", 1000, 2000, 9)
	seedProduct(t, env.svc, "C", 1000, 2000, 10)
	env.repo.SetDashboardPeriods([]domain.DashboardPeriod{{Period: domain.PeriodToday, Profit: 1000}})

	stats, err := env.svc.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Len(t, stats.Profits, 1)
	assert.Equal(t, 3, stats.Inventory.TotalProducts)
	assert.Equal(t, 44, stats.Inventory.TotalStock)
	assert.Equal(t, 1, stats.Inventory.LowStockCount)
	require.Len(t, stats.Inventory.LowStockProducts, 1)
	assert.Equal(t, "B", stats.Inventory.LowStockProducts[0].SKU)
}

func TestProfitChartMovesAfterCheckout(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	seedProduct(t, env.svc, "BTK-001", 95000, 150000, 20)

	_, err := env.svc.Checkout(ctx, domain.CheckoutRequest{
		Items:         []domain.CartItem{{SKU: "BTK-001", Qty: 2}},
		PaymentMethod: domain.PaymentCash,
	})
	require.NoError(t, err)

	points, err := env.svc.ProfitChart(ctx)
	require.NoError(t, err)
	require.Len(t, points, 6)
	for _, p := range points {
		assert.Equal(t, 110000.0, p.Profit, p.Label)
	}

	stats, err := env.svc.DashboardStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats.Profits, 6)
	assert.Equal(t, domain.PeriodToday, stats.Profits[0].Period)
	assert.Equal(t, 110000.0, stats.Profits[0].Profit)
}
