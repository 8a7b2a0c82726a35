// Package sheets stores the shop's tables in a Google spreadsheet. Each
// logical table is one tab whose first row is a header.
package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"kasirbutik/backend/internal/domain"
	"kasirbutik/backend/internal/store"
)

// Tables names the tab holding each logical table.
type Tables struct {
	Products     string
	Transactions string
	Dashboard    string
	Debts        string
}

type Credentials struct {
	Email      string
	PrivateKey string
}

type tab struct {
	title string
	id    int64
}

type Store struct {
	api           *sheetsapi.Service
	spreadsheetID string
	tables        Tables
	log           *zap.Logger

	mu   sync.Mutex
	tabs map[string]tab
}

// New authenticates with a service account and checks that the
// spreadsheet is reachable.
func New(ctx context.Context, creds Credentials, spreadsheetID string, tables Tables, log *zap.Logger) (*Store, error) {
	conf := &jwt.Config{
		Email:      creds.Email,
		PrivateKey: []byte(creds.PrivateKey),
		Scopes:     []string{sheetsapi.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}
	api, err := sheetsapi.NewService(ctx, option.WithHTTPClient(conf.Client(context.Background())))
	if err != nil {
		return nil, err
	}

	s := NewWithService(api, spreadsheetID, tables, log)
	if _, err := s.SheetTitles(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func NewWithService(api *sheetsapi.Service, spreadsheetID string, tables Tables, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		api:           api,
		spreadsheetID: spreadsheetID,
		tables:        tables,
		log:           log,
		tabs:          make(map[string]tab),
	}
}

// SheetTitles lists every tab in the spreadsheet and refreshes the
// name cache.
func (s *Store) SheetTitles(ctx context.Context) ([]string, error) {
	resp, err := s.api.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, store.Upstream("sheets.get", err)
	}

	titles := make([]string, 0, len(resp.Sheets))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sh := range resp.Sheets {
		if sh.Properties == nil {
			continue
		}
		titles = append(titles, sh.Properties.Title)
		s.tabs[strings.TrimSpace(sh.Properties.Title)] = tab{title: sh.Properties.Title, id: sh.Properties.SheetId}
	}
	return titles, nil
}

// resolve matches a configured name against the real tab titles ignoring
// surrounding whitespace ("CATATAN_HUTANG " and "CATATAN_HUTANG" are the
// same tab).
func (s *Store) resolve(ctx context.Context, name string) (tab, error) {
	key := strings.TrimSpace(name)
	s.mu.Lock()
	t, ok := s.tabs[key]
	s.mu.Unlock()
	if ok {
		return t, nil
	}

	if _, err := s.SheetTitles(ctx); err != nil {
		return tab{}, err
	}
	s.mu.Lock()
	t, ok = s.tabs[key]
	s.mu.Unlock()
	if !ok {
		return tab{}, store.Upstream("sheets.resolve", fmt.Errorf("no tab named %q", name))
	}
	return t, nil
}

func (s *Store) readRows(ctx context.Context, table string, cols string) ([][]any, error) {
	t, err := s.resolve(ctx, table)
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Spreadsheets.Values.Get(s.spreadsheetID, a1(t.title, cols)).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, store.Upstream("sheets.values.get", err)
	}
	rows := make([][]any, 0, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Store) appendRow(ctx context.Context, table string, cols string, row []any) error {
	t, err := s.resolve(ctx, table)
	if err != nil {
		return err
	}
	_, err = s.api.Spreadsheets.Values.Append(s.spreadsheetID, a1(t.title, cols), &sheetsapi.ValueRange{Values: [][]any{row}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	return store.Upstream("sheets.values.append", err)
}

func (s *Store) writeRow(ctx context.Context, table string, rng string, row []any) error {
	t, err := s.resolve(ctx, table)
	if err != nil {
		return err
	}
	_, err = s.api.Spreadsheets.Values.Update(s.spreadsheetID, a1(t.title, rng), &sheetsapi.ValueRange{Values: [][]any{row}}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	return store.Upstream("sheets.values.update", err)
}

// keyRow returns the 1-based sheet row holding key in column A.
func (s *Store) keyRow(ctx context.Context, table string, key string) (int, error) {
	rows, err := s.readKeyColumn(ctx, table)
	if err != nil {
		return 0, err
	}
	for i, cell := range rows {
		if cell == key {
			return i + 2, nil
		}
	}
	return 0, store.ErrNotFound
}

func (s *Store) readKeyColumn(ctx context.Context, table string) ([]string, error) {
	t, err := s.resolve(ctx, table)
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Spreadsheets.Values.Get(s.spreadsheetID, a1(t.title, "A2:A")).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, store.Upstream("sheets.values.get", err)
	}
	keys := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		keys[i] = cellString(row, 0)
	}
	return keys, nil
}

func (s *Store) deleteRow(ctx context.Context, table string, rowNumber int) error {
	t, err := s.resolve(ctx, table)
	if err != nil {
		return err
	}
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			DeleteDimension: &sheetsapi.DeleteDimensionRequest{
				Range: &sheetsapi.DimensionRange{
					SheetId:         t.id,
					Dimension:       "ROWS",
					StartIndex:      int64(rowNumber - 1),
					EndIndex:        int64(rowNumber),
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	_, err = s.api.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	return store.Upstream("sheets.batchUpdate", err)
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.readRows(ctx, s.tables.Products, "A2:G")
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, productFromRow(row))
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, sku string) (*domain.Product, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if p.SKU == sku {
			found := p
			return &found, nil
		}
	}
	return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, sku)
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	keys, err := s.readKeyColumn(ctx, s.tables.Products)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		if key == product.SKU {
			return nil, fmt.Errorf("%w: product %s already exists", store.ErrDuplicateKey, product.SKU)
		}
	}
	if err := s.appendRow(ctx, s.tables.Products, "A:G", productToRow(product)); err != nil {
		return nil, err
	}
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	row, err := s.keyRow(ctx, s.tables.Products, product.SKU)
	if err != nil {
		return nil, fmt.Errorf("%w: product %s", err, product.SKU)
	}
	if err := s.writeRow(ctx, s.tables.Products, fmt.Sprintf("A%d:G%d", row, row), productToRow(product)); err != nil {
		return nil, err
	}
	updated := product
	return &updated, nil
}

func (s *Store) SetStock(ctx context.Context, sku string, qty int) error {
	row, err := s.keyRow(ctx, s.tables.Products, sku)
	if err != nil {
		return fmt.Errorf("%w: product %s", err, sku)
	}
	return s.writeRow(ctx, s.tables.Products, fmt.Sprintf("F%d", row), []any{qty})
}

func (s *Store) DeleteProduct(ctx context.Context, sku string) error {
	row, err := s.keyRow(ctx, s.tables.Products, sku)
	if err != nil {
		return fmt.Errorf("%w: product %s", err, sku)
	}
	return s.deleteRow(ctx, s.tables.Products, row)
}

func (s *Store) AppendTransactionLine(ctx context.Context, line domain.TransactionLine) error {
	return s.appendRow(ctx, s.tables.Transactions, "A:H", lineToRow(line))
}

func (s *Store) ListTransactionLines(ctx context.Context) ([]domain.TransactionLine, error) {
	rows, err := s.readRows(ctx, s.tables.Transactions, "A2:H")
	if err != nil {
		return nil, err
	}
	lines := make([]domain.TransactionLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, lineFromRow(row))
	}
	return lines, nil
}

func (s *Store) ListDebts(ctx context.Context) ([]domain.Debt, error) {
	rows, err := s.readRows(ctx, s.tables.Debts, "A2:J")
	if err != nil {
		return nil, err
	}
	debts := make([]domain.Debt, 0, len(rows))
	for _, row := range rows {
		debts = append(debts, debtFromRow(row))
	}
	return debts, nil
}

func (s *Store) GetDebt(ctx context.Context, id string) (*domain.Debt, error) {
	debts, err := s.ListDebts(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range debts {
		if d.ID == id {
			found := d
			return &found, nil
		}
	}
	return nil, fmt.Errorf("%w: debt %s", store.ErrNotFound, id)
}

func (s *Store) CreateDebt(ctx context.Context, debt domain.Debt) (*domain.Debt, error) {
	if err := s.appendRow(ctx, s.tables.Debts, "A:J", debtToRow(debt)); err != nil {
		return nil, err
	}
	created := debt
	return &created, nil
}

func (s *Store) UpdateDebt(ctx context.Context, debt domain.Debt) (*domain.Debt, error) {
	row, err := s.keyRow(ctx, s.tables.Debts, debt.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: debt %s", err, debt.ID)
	}
	if err := s.writeRow(ctx, s.tables.Debts, fmt.Sprintf("A%d:J%d", row, row), debtToRow(debt)); err != nil {
		return nil, err
	}
	updated := debt
	return &updated, nil
}

func (s *Store) DeleteDebt(ctx context.Context, id string) error {
	row, err := s.keyRow(ctx, s.tables.Debts, id)
	if err != nil {
		return fmt.Errorf("%w: debt %s", err, id)
	}
	return s.deleteRow(ctx, s.tables.Debts, row)
}

// ListDashboardPeriods reads the formula-driven summary block. Rows whose
// label names no known period are skipped.
func (s *Store) ListDashboardPeriods(ctx context.Context) ([]domain.DashboardPeriod, error) {
	rows, err := s.readRows(ctx, s.tables.Dashboard, "A2:B7")
	if err != nil {
		return nil, err
	}
	periods := make([]domain.DashboardPeriod, 0, len(rows))
	for _, row := range rows {
		label := cellString(row, 0)
		id, ok := store.ParsePeriodLabel(label)
		if !ok {
			s.log.Warn("unrecognised dashboard period label", zap.String("label", label))
			continue
		}
		periods = append(periods, domain.DashboardPeriod{Period: id, Profit: cellFloat(row, 1)})
	}
	return periods, nil
}

func a1(title string, cols string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'!" + cols
}
