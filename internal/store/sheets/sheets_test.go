package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"kasirbutik/backend/internal/domain"
	"kasirbutik/backend/internal/store"
)

var _ store.Repository = (*Store)(nil)

type fakeSpreadsheet struct {
	mu       sync.Mutex
	values   map[string][][]any
	requests []string
	batch    []byte
}

func (f *fakeSpreadsheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasSuffix(r.URL.Path, ":batchUpdate"):
		f.batch, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{}`))
	case strings.Contains(r.URL.Path, "/values/"):
		for rng, rows := range f.values {
			if strings.HasSuffix(r.URL.Path, rng) {
				_ = json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": rows})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{})
	default:
		_, _ = w.Write([]byte(`{"sheets":[
			{"properties":{"title":"MASTER_BARANG","sheetId":123}},
			{"properties":{"title":"CATATAN_HUTANG ","sheetId":456}},
			{"properties":{"title":"DASHBOARD_WAKTU","sheetId":789}}
		]}`))
	}
}

func newFakeStore(t *testing.T, fake *fakeSpreadsheet) *Store {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	api, err := sheetsapi.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	return NewWithService(api, "sheet-id", Tables{
		Products:     "MASTER_BARANG",
		Transactions: "TRANSAKSI_LOG",
		Dashboard:    "DASHBOARD_WAKTU",
		Debts:        "CATATAN_HUTANG",
	}, nil)
}

func TestListProductsReadsRows(t *testing.T) {
	fake := &fakeSpreadsheet{values: map[string][][]any{
		"'MASTER_BARANG'!A2:G": {
			{"SKU001", "Gamis", 50000, 80000, 10, 10, ""},
			{},
			{"SKU002", "Kerudung", 30000, 55000, 5, 2, "https://img"},
		},
	}}
	s := newFakeStore(t, fake)

	products, err := s.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "SKU002", products[1].SKU)
	assert.Equal(t, 2, products[1].CurrentStock)
}

func TestDeleteProductUsesResolvedSheetID(t *testing.T) {
	fake := &fakeSpreadsheet{values: map[string][][]any{
		"'MASTER_BARANG'!A2:A": {{"SKU001"}, {"SKU002"}},
	}}
	s := newFakeStore(t, fake)

	require.NoError(t, s.DeleteProduct(context.Background(), "SKU002"))

	var body sheetsapi.BatchUpdateSpreadsheetRequest
	require.NoError(t, json.Unmarshal(fake.batch, &body))
	require.Len(t, body.Requests, 1)
	rng := body.Requests[0].DeleteDimension.Range
	assert.Equal(t, int64(123), rng.SheetId)
	assert.Equal(t, int64(2), rng.StartIndex)
	assert.Equal(t, int64(3), rng.EndIndex)
}

func TestDeleteMissingProductIsNotFound(t *testing.T) {
	fake := &fakeSpreadsheet{values: map[string][][]any{
		"'MASTER_BARANG'!A2:A": {{"SKU001"}},
	}}
	s := newFakeStore(t, fake)

	err := s.DeleteProduct(context.Background(), "SKU404")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestDebtTabResolvedDespiteTrailingSpace(t *testing.T) {
	fake := &fakeSpreadsheet{values: map[string][][]any{
		"'CATATAN_HUTANG '!A2:J": {
			{"DEBT-1", "Alice", 150000, 150000, 0, "2024-06-01", "2024-07-01", "Aktif", "", ""},
		},
	}}
	s := newFakeStore(t, fake)

	debts, err := s.ListDebts(context.Background())
	require.NoError(t, err)
	require.Len(t, debts, 1)
	assert.Equal(t, domain.DebtActive, debts[0].Status)
	assert.Equal(t, "Alice", debts[0].DebtorName)
}

func TestDashboardSkipsUnknownLabels(t *testing.T) {
	fake := &fakeSpreadsheet{values: map[string][][]any{
		"'DASHBOARD_WAKTU'!A2:B7": {
			{"Hari Ini", 90000},
			{"Tahunan", 1},
			{"Bulanan", 1200000},
		},
	}}
	s := newFakeStore(t, fake)

	periods, err := s.ListDashboardPeriods(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.DashboardPeriod{
		{Period: domain.PeriodToday, Profit: 90000},
		{Period: domain.PeriodMonthly, Profit: 1200000},
	}, periods)
}

func TestMissingTabIsUpstreamFailure(t *testing.T) {
	s := newFakeStore(t, &fakeSpreadsheet{})
	_, err := s.ListTransactionLines(context.Background())
	assert.True(t, errors.Is(err, store.ErrUpstream))
}
