package metrics

import (
	"context"

	"kasirbutik/backend/internal/domain"
	"kasirbutik/backend/internal/store"
)

type instrumentedRepository struct {
	next    store.Repository
	backend string
	m       *Metrics
}

// InstrumentRepository times every call made to repo.
func InstrumentRepository(repo store.Repository, backend string, m *Metrics) store.Repository {
	if m == nil {
		return repo
	}
	return &instrumentedRepository{next: repo, backend: backend, m: m}
}

func (r *instrumentedRepository) track(op string) func() {
	return r.m.TrackStoreOperation(r.backend, op)
}

func (r *instrumentedRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	defer r.track("list_products")()
	return r.next.ListProducts(ctx)
}

func (r *instrumentedRepository) GetProduct(ctx context.Context, sku string) (*domain.Product, error) {
	defer r.track("get_product")()
	return r.next.GetProduct(ctx, sku)
}

func (r *instrumentedRepository) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	defer r.track("create_product")()
	return r.next.CreateProduct(ctx, product)
}

func (r *instrumentedRepository) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	defer r.track("update_product")()
	return r.next.UpdateProduct(ctx, product)
}

func (r *instrumentedRepository) SetStock(ctx context.Context, sku string, qty int) error {
	defer r.track("set_stock")()
	return r.next.SetStock(ctx, sku, qty)
}

func (r *instrumentedRepository) DeleteProduct(ctx context.Context, sku string) error {
	defer r.track("delete_product")()
	return r.next.DeleteProduct(ctx, sku)
}

func (r *instrumentedRepository) AppendTransactionLine(ctx context.Context, line domain.TransactionLine) error {
	defer r.track("append_line")()
	return r.next.AppendTransactionLine(ctx, line)
}

func (r *instrumentedRepository) ListTransactionLines(ctx context.Context) ([]domain.TransactionLine, error) {
	defer r.track("list_lines")()
	return r.next.ListTransactionLines(ctx)
}

func (r *instrumentedRepository) ListDebts(ctx context.Context) ([]domain.Debt, error) {
	defer r.track("list_debts")()
	return r.next.ListDebts(ctx)
}

func (r *instrumentedRepository) GetDebt(ctx context.Context, id string) (*domain.Debt, error) {
	defer r.track("get_debt")()
	return r.next.GetDebt(ctx, id)
}

func (r *instrumentedRepository) CreateDebt(ctx context.Context, debt domain.Debt) (*domain.Debt, error) {
	defer r.track("create_debt")()
	return r.next.CreateDebt(ctx, debt)
}

func (r *instrumentedRepository) UpdateDebt(ctx context.Context, debt domain.Debt) (*domain.Debt, error) {
	defer r.track("update_debt")()
	return r.next.UpdateDebt(ctx, debt)
}

func (r *instrumentedRepository) DeleteDebt(ctx context.Context, id string) error {
	defer r.track("delete_debt")()
	return r.next.DeleteDebt(ctx, id)
}

func (r *instrumentedRepository) ListDashboardPeriods(ctx context.Context) ([]domain.DashboardPeriod, error) {
	defer r.track("list_dashboard")()
	return r.next.ListDashboardPeriods(ctx)
}
