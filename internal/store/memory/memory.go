package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"kasirbutik/backend/internal/domain"
	"kasirbutik/backend/internal/store"
)

// Store keeps every table in process memory, in insertion order, the same
// way the spreadsheet keeps rows.
type Store struct {
	mu       sync.RWMutex
	products []domain.Product
	lines    []domain.TransactionLine
	debts    []domain.Debt

	// periods pins the dashboard table; nil computes it from lines.
	periods []domain.DashboardPeriod
	now     func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

// NewSeeded returns a store with a small demo catalog for local runs.
func NewSeeded() *Store {
	s := New()
	s.products = []domain.Product{
		{SKU: "BTK-001", Name: "Gamis Katun Polos", CostPrice: 95000, SellingPrice: 150000, InitialStock: 20, CurrentStock: 20},
		{SKU: "BTK-002", Name: "Kerudung Segi Empat Voal", CostPrice: 30000, SellingPrice: 55000, InitialStock: 40, CurrentStock: 40},
		{SKU: "BTK-003", Name: "Tunik Batik", CostPrice: 70000, SellingPrice: 120000, InitialStock: 15, CurrentStock: 15},
		{SKU: "BTK-004", Name: "Rok Plisket", CostPrice: 45000, SellingPrice: 85000, InitialStock: 12, CurrentStock: 8},
		{SKU: "BTK-005", Name: "Bros Mutiara", CostPrice: 8000, SellingPrice: 20000, InitialStock: 50, CurrentStock: 50},
	}
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.products), nil
}

func (s *Store) GetProduct(_ context.Context, sku string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.productIndex(sku)
	if idx < 0 {
		return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, sku)
	}
	product := s.products[idx]
	return &product, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.productIndex(product.SKU) >= 0 {
		return nil, fmt.Errorf("%w: product %s already exists", store.ErrDuplicateKey, product.SKU)
	}
	s.products = append(s.products, product)
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.productIndex(product.SKU)
	if idx < 0 {
		return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, product.SKU)
	}
	s.products[idx] = product
	updated := product
	return &updated, nil
}

func (s *Store) SetStock(_ context.Context, sku string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.productIndex(sku)
	if idx < 0 {
		return fmt.Errorf("%w: product %s", store.ErrNotFound, sku)
	}
	s.products[idx].CurrentStock = qty
	return nil
}

func (s *Store) DeleteProduct(_ context.Context, sku string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.productIndex(sku)
	if idx < 0 {
		return fmt.Errorf("%w: product %s", store.ErrNotFound, sku)
	}
	s.products = slices.Delete(s.products, idx, idx+1)
	return nil
}

func (s *Store) AppendTransactionLine(_ context.Context, line domain.TransactionLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
	return nil
}

func (s *Store) ListTransactionLines(_ context.Context) ([]domain.TransactionLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lines), nil
}

func (s *Store) ListDebts(_ context.Context) ([]domain.Debt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	debts := make([]domain.Debt, 0, len(s.debts))
	for _, d := range s.debts {
		debts = append(debts, cloneDebt(d))
	}
	return debts, nil
}

func (s *Store) GetDebt(_ context.Context, id string) (*domain.Debt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.debtIndex(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: debt %s", store.ErrNotFound, id)
	}
	debt := cloneDebt(s.debts[idx])
	return &debt, nil
}

func (s *Store) CreateDebt(_ context.Context, debt domain.Debt) (*domain.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debtIndex(debt.ID) >= 0 {
		return nil, fmt.Errorf("%w: debt %s already exists", store.ErrDuplicateKey, debt.ID)
	}
	s.debts = append(s.debts, cloneDebt(debt))
	created := cloneDebt(debt)
	return &created, nil
}

func (s *Store) UpdateDebt(_ context.Context, debt domain.Debt) (*domain.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.debtIndex(debt.ID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: debt %s", store.ErrNotFound, debt.ID)
	}
	s.debts[idx] = cloneDebt(debt)
	updated := cloneDebt(debt)
	return &updated, nil
}

func (s *Store) DeleteDebt(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.debtIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: debt %s", store.ErrNotFound, id)
	}
	s.debts = slices.Delete(s.debts, idx, idx+1)
	return nil
}

// ListDashboardPeriods sums the transaction log over the dashboard
// windows, the way the spreadsheet's formulas do.
func (s *Store) ListDashboardPeriods(_ context.Context) ([]domain.DashboardPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.periods != nil {
		return slices.Clone(s.periods), nil
	}
	return store.ProfitWindows(s.lines, s.now()), nil
}

// SetClock sets the clock the dashboard windows count back from. The
// location of the returned time decides which calendar day is today.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetDashboardPeriods pins the dashboard table in place of the computed
// windows. Passing nil restores the computed ones.
func (s *Store) SetDashboardPeriods(periods []domain.DashboardPeriod) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periods = slices.Clone(periods)
}

func (s *Store) productIndex(sku string) int {
	return slices.IndexFunc(s.products, func(p domain.Product) bool { return p.SKU == sku })
}

func (s *Store) debtIndex(id string) int {
	return slices.IndexFunc(s.debts, func(d domain.Debt) bool { return d.ID == id })
}

func cloneDebt(d domain.Debt) domain.Debt {
	d.PaymentHistory = slices.Clone(d.PaymentHistory)
	return d
}
