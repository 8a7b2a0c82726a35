package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"kasirbutik/backend/internal/domain"
	"kasirbutik/backend/internal/store"
)

var _ store.Repository = (*Store)(nil)

func TestCreateProductRejectsDuplicateSKU(t *testing.T) {
	s := NewSeeded()
	_, err := s.CreateProduct(context.Background(), domain.Product{SKU: "BTK-001", Name: "dup"})
	if !errors.Is(err, store.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestListProductsReturnsCopy(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	products, err := s.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	products[0].CurrentStock = -100

	fresh, err := s.GetProduct(ctx, products[0].SKU)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if fresh.CurrentStock == -100 {
		t.Fatalf("mutating a listed product leaked into the store")
	}
}

func TestDebtHistoryIsNotShared(t *testing.T) {
	s := New()
	ctx := context.Background()
	debt := domain.Debt{ID: "DEBT-1", RemainingBalance: 10, PaymentHistory: []domain.Payment{{Date: "2024-01-01", Amount: 5}}}
	if _, err := s.CreateDebt(ctx, debt); err != nil {
		t.Fatalf("create debt: %v", err)
	}
	debt.PaymentHistory[0].Amount = 999

	stored, err := s.GetDebt(ctx, "DEBT-1")
	if err != nil {
		t.Fatalf("get debt: %v", err)
	}
	if stored.PaymentHistory[0].Amount != 5 {
		t.Fatalf("expected stored history to be isolated, got %v", stored.PaymentHistory[0].Amount)
	}
}

func TestDeleteMissingRowsReportNotFound(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.DeleteProduct(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for product, got %v", err)
	}
	if err := s.DeleteDebt(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for debt, got %v", err)
	}
	if err := s.SetStock(ctx, "nope", 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for stock, got %v", err)
	}
}

func TestDashboardPeriodsFollowLog(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	wib := time.FixedZone("WIB", 7*60*60)
	s.SetClock(func() time.Time { return time.Date(2026, 10, 17, 0, 30, 0, 0, wib) })

	if err := s.AppendTransactionLine(ctx, domain.TransactionLine{Date: "2026-10-17", SKU: "BTK-001", Qty: 2, LineProfit: 110000}); err != nil {
		t.Fatalf("append line: %v", err)
	}
	periods, err := s.ListDashboardPeriods(ctx)
	if err != nil {
		t.Fatalf("dashboard periods: %v", err)
	}
	if len(periods) != len(domain.Periods) {
		t.Fatalf("expected %d periods, got %d", len(domain.Periods), len(periods))
	}
	for _, p := range periods {
		if p.Profit != 110000 {
			t.Fatalf("period %s: expected 110000, got %v", p.Period, p.Profit)
		}
	}

	s.SetDashboardPeriods([]domain.DashboardPeriod{{Period: domain.PeriodToday, Profit: 5}})
	pinned, _ := s.ListDashboardPeriods(ctx)
	if len(pinned) != 1 || pinned[0].Profit != 5 {
		t.Fatalf("expected pinned table, got %+v", pinned)
	}
}
