package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"kasirbutik/backend/internal/store/memory"
)

func TestCountersAndExposition(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodGet, "/api/products", http.StatusOK, 15*time.Millisecond)
	m.RecordCheckout("cash", 2)
	m.RecordPartialCommit()
	m.RecordDebtPayment()

	if got := testutil.ToFloat64(m.checkoutLines); got != 2 {
		t.Fatalf("expected 2 checkout lines, got %v", got)
	}
	if got := testutil.ToFloat64(m.partialCommits); got != 1 {
		t.Fatalf("expected 1 partial commit, got %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, name := range []string{"kasirbutik_http_requests_total", "kasirbutik_checkout_total", "kasirbutik_debt_payments_total"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in exposition", name)
		}
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP(http.MethodGet, "/", 200, time.Millisecond)
	m.RecordCheckout("debt", 1)
	m.TrackStoreOperation("memory", "noop")()
}

func TestInstrumentRepositoryTimesCalls(t *testing.T) {
	m := New()
	repo := InstrumentRepository(memory.NewSeeded(), "memory", m)

	if _, err := repo.ListProducts(context.Background()); err != nil {
		t.Fatalf("list products: %v", err)
	}
	if got := testutil.CollectAndCount(m.storeDuration); got != 1 {
		t.Fatalf("expected one timed series, got %d", got)
	}
}
