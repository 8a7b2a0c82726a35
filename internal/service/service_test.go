package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kasirbutik/backend/internal/domain"
	"kasirbutik/backend/internal/imagestore"
	"kasirbutik/backend/internal/metrics"
	"kasirbutik/backend/internal/store"
	"kasirbutik/backend/internal/store/memory"
)

var (
	wib     = time.FixedZone("WIB", 7*60*60)
	testNow = time.Date(2026, 10, 17, 10, 0, 0, 0, wib)
)

type testEnv struct {
	svc     *Service
	repo    *memory.Store
	metrics *metrics.Metrics
	images  *imagestore.Memory
}

// newTestService wires a service over an empty memory store. The clock
// starts at testNow and moves one millisecond per read so debt IDs stay
// distinct.
func newTestService(t *testing.T) testEnv {
	t.Helper()
	repo := memory.New()
	return newTestServiceWithRepo(t, repo, repo)
}

func newTestServiceWithRepo(t *testing.T, mem *memory.Store, repo store.Repository) testEnv {
	t.Helper()
	var ticks atomic.Int64
	mem.SetClock(func() time.Time { return testNow })
	m := metrics.New()
	images := imagestore.NewMemory("pos-products")
	svc := New(repo, Options{
		Images:   images,
		Metrics:  m,
		Location: wib,
		Now: func() time.Time {
			return testNow.Add(time.Duration(ticks.Add(1)) * time.Millisecond)
		},
	})
	return testEnv{svc: svc, repo: mem, metrics: m, images: images}
}

func seedProduct(t *testing.T, svc *Service, sku string, cost float64, price float64, stock int) domain.Product {
	t.Helper()
	product, err := svc.CreateProduct(context.Background(), domain.ProductCreateRequest{
		SKU:          sku,
		Name:         "Produk " + sku,
		CostPrice:    &cost,
		SellingPrice: &price,
		InitialStock: &stock,
	})
	require.NoError(t, err)
	return product
}

func scrapeMetrics(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

// failingRepo fails SetStock for one SKU after delegating everything else.
type failingRepo struct {
	store.Repository
	failSKU string
}

var errSheetWrite = errors.New("sheet write rejected")

func (r *failingRepo) SetStock(ctx context.Context, sku string, qty int) error {
	if sku == r.failSKU {
		return store.Upstream("sheets.update", errSheetWrite)
	}
	return r.Repository.SetStock(ctx, sku, qty)
}

func ptr[T any](v T) *T {
	return &v
}
