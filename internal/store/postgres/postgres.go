package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"kasirbutik/backend/internal/domain"
	"kasirbutik/backend/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	position      BIGSERIAL,
	sku           TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	cost_price    DOUBLE PRECISION NOT NULL DEFAULT 0,
	selling_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	initial_stock INTEGER NOT NULL DEFAULT 0,
	current_stock INTEGER NOT NULL DEFAULT 0,
	image_url     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS transaction_lines (
	id            BIGSERIAL PRIMARY KEY,
	sale_date     TEXT NOT NULL,
	sku           TEXT NOT NULL,
	product_name  TEXT NOT NULL,
	qty           INTEGER NOT NULL,
	selling_price DOUBLE PRECISION NOT NULL,
	cost_price    DOUBLE PRECISION NOT NULL,
	line_total    DOUBLE PRECISION NOT NULL,
	line_profit   DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS debts (
	position            BIGSERIAL,
	id                  TEXT PRIMARY KEY,
	debtor_name         TEXT NOT NULL,
	total_debt          DOUBLE PRECISION NOT NULL,
	remaining_balance   DOUBLE PRECISION NOT NULL,
	monthly_installment DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_date        TEXT NOT NULL,
	due_date            TEXT NOT NULL,
	status              TEXT NOT NULL,
	notes               TEXT NOT NULL DEFAULT '',
	payment_history     JSONB NOT NULL DEFAULT '[]'
);
`

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(16)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

// SetClock sets the clock the dashboard windows count back from. The
// location of the returned time decides which calendar day is today.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return store.Upstream("postgres.schema", err)
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sku, name, cost_price, selling_price, initial_stock, current_stock, image_url
		FROM products
		ORDER BY position
	`)
	if err != nil {
		return nil, store.Upstream("postgres.products", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.SKU, &p.Name, &p.CostPrice, &p.SellingPrice, &p.InitialStock, &p.CurrentStock, &p.ImageURL); err != nil {
			return nil, store.Upstream("postgres.products", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Upstream("postgres.products", err)
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, sku string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT sku, name, cost_price, selling_price, initial_stock, current_stock, image_url
		FROM products
		WHERE sku = $1
	`, sku).Scan(&p.SKU, &p.Name, &p.CostPrice, &p.SellingPrice, &p.InitialStock, &p.CurrentStock, &p.ImageURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, sku)
		}
		return nil, store.Upstream("postgres.product", err)
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (sku, name, cost_price, selling_price, initial_stock, current_stock, image_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, product.SKU, product.Name, product.CostPrice, product.SellingPrice, product.InitialStock, product.CurrentStock, product.ImageURL)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: product %s already exists", store.ErrDuplicateKey, product.SKU)
		}
		return nil, store.Upstream("postgres.product.insert", err)
	}
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, cost_price = $3, selling_price = $4, initial_stock = $5, current_stock = $6, image_url = $7
		WHERE sku = $1
	`, product.SKU, product.Name, product.CostPrice, product.SellingPrice, product.InitialStock, product.CurrentStock, product.ImageURL)
	if err := affectedOne(res, err, "postgres.product.update"); err != nil {
		return nil, fmt.Errorf("%w: product %s", err, product.SKU)
	}
	updated := product
	return &updated, nil
}

func (s *Store) SetStock(ctx context.Context, sku string, qty int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE products SET current_stock = $2 WHERE sku = $1`, sku, qty)
	if err := affectedOne(res, err, "postgres.stock"); err != nil {
		return fmt.Errorf("%w: product %s", err, sku)
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, sku string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE sku = $1`, sku)
	if err := affectedOne(res, err, "postgres.product.delete"); err != nil {
		return fmt.Errorf("%w: product %s", err, sku)
	}
	return nil
}

func (s *Store) AppendTransactionLine(ctx context.Context, line domain.TransactionLine) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transaction_lines (sale_date, sku, product_name, qty, selling_price, cost_price, line_total, line_profit)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, line.Date, line.SKU, line.ProductName, line.Qty, line.SellingPrice, line.CostPrice, line.LineTotal, line.LineProfit)
	return store.Upstream("postgres.line.insert", err)
}

func (s *Store) ListTransactionLines(ctx context.Context) ([]domain.TransactionLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sale_date, sku, product_name, qty, selling_price, cost_price, line_total, line_profit
		FROM transaction_lines
		ORDER BY id
	`)
	if err != nil {
		return nil, store.Upstream("postgres.lines", err)
	}
	defer rows.Close()

	lines := make([]domain.TransactionLine, 0, 256)
	for rows.Next() {
		var l domain.TransactionLine
		if err := rows.Scan(&l.Date, &l.SKU, &l.ProductName, &l.Qty, &l.SellingPrice, &l.CostPrice, &l.LineTotal, &l.LineProfit); err != nil {
			return nil, store.Upstream("postgres.lines", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Upstream("postgres.lines", err)
	}
	return lines, nil
}

const debtColumns = `id, debtor_name, total_debt, remaining_balance, monthly_installment, created_date, due_date, status, notes, payment_history`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDebt(row rowScanner) (domain.Debt, error) {
	var (
		d       domain.Debt
		status  string
		history []byte
	)
	if err := row.Scan(&d.ID, &d.DebtorName, &d.TotalDebt, &d.RemainingBalance, &d.MonthlyInstallment,
		&d.CreatedDate, &d.DueDate, &status, &d.Notes, &history); err != nil {
		return domain.Debt{}, err
	}
	d.Status = domain.DebtStatus(status)
	if len(history) > 0 {
		if err := json.Unmarshal(history, &d.PaymentHistory); err != nil {
			return domain.Debt{}, err
		}
	}
	return d, nil
}

func (s *Store) ListDebts(ctx context.Context) ([]domain.Debt, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+debtColumns+` FROM debts ORDER BY position`)
	if err != nil {
		return nil, store.Upstream("postgres.debts", err)
	}
	defer rows.Close()

	debts := make([]domain.Debt, 0, 32)
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, store.Upstream("postgres.debts", err)
		}
		debts = append(debts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Upstream("postgres.debts", err)
	}
	return debts, nil
}

func (s *Store) GetDebt(ctx context.Context, id string) (*domain.Debt, error) {
	d, err := scanDebt(s.db.QueryRowContext(ctx, `SELECT `+debtColumns+` FROM debts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: debt %s", store.ErrNotFound, id)
		}
		return nil, store.Upstream("postgres.debt", err)
	}
	return &d, nil
}

func (s *Store) CreateDebt(ctx context.Context, debt domain.Debt) (*domain.Debt, error) {
	history, err := marshalHistory(debt.PaymentHistory)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO debts (`+debtColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10::jsonb)
	`, debt.ID, debt.DebtorName, debt.TotalDebt, debt.RemainingBalance, debt.MonthlyInstallment,
		debt.CreatedDate, debt.DueDate, string(debt.Status), debt.Notes, history)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: debt %s already exists", store.ErrDuplicateKey, debt.ID)
		}
		return nil, store.Upstream("postgres.debt.insert", err)
	}
	created := debt
	return &created, nil
}

func (s *Store) UpdateDebt(ctx context.Context, debt domain.Debt) (*domain.Debt, error) {
	history, err := marshalHistory(debt.PaymentHistory)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE debts
		SET debtor_name = $2, total_debt = $3, remaining_balance = $4, monthly_installment = $5,
			created_date = $6, due_date = $7, status = $8, notes = $9, payment_history = $10::jsonb
		WHERE id = $1
	`, debt.ID, debt.DebtorName, debt.TotalDebt, debt.RemainingBalance, debt.MonthlyInstallment,
		debt.CreatedDate, debt.DueDate, string(debt.Status), debt.Notes, history)
	if err := affectedOne(res, err, "postgres.debt.update"); err != nil {
		return nil, fmt.Errorf("%w: debt %s", err, debt.ID)
	}
	updated := debt
	return &updated, nil
}

func (s *Store) DeleteDebt(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM debts WHERE id = $1`, id)
	if err := affectedOne(res, err, "postgres.debt.delete"); err != nil {
		return fmt.Errorf("%w: debt %s", err, id)
	}
	return nil
}

// ListDashboardPeriods aggregates profit over the transaction log. Windows
// count back from the shop's local date, not the server's current_date.
func (s *Store) ListDashboardPeriods(ctx context.Context) ([]domain.DashboardPeriod, error) {
	localDate := s.now().Format(domain.DateLayout)
	var today, d7, d14, d21, d30, month float64
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(line_profit) FILTER (WHERE sale_date::date = $1::date), 0),
			COALESCE(SUM(line_profit) FILTER (WHERE sale_date::date > $1::date - 7 AND sale_date::date <= $1::date), 0),
			COALESCE(SUM(line_profit) FILTER (WHERE sale_date::date > $1::date - 14 AND sale_date::date <= $1::date), 0),
			COALESCE(SUM(line_profit) FILTER (WHERE sale_date::date > $1::date - 21 AND sale_date::date <= $1::date), 0),
			COALESCE(SUM(line_profit) FILTER (WHERE sale_date::date > $1::date - 30 AND sale_date::date <= $1::date), 0),
			COALESCE(SUM(line_profit) FILTER (WHERE date_trunc('month', sale_date::date) = date_trunc('month', $1::date)), 0)
		FROM transaction_lines
	`, localDate).Scan(&today, &d7, &d14, &d21, &d30, &month)
	if err != nil {
		return nil, store.Upstream("postgres.dashboard", err)
	}
	return []domain.DashboardPeriod{
		{Period: domain.PeriodToday, Profit: today},
		{Period: domain.PeriodLast7Days, Profit: d7},
		{Period: domain.PeriodLast14Days, Profit: d14},
		{Period: domain.PeriodLast21Days, Profit: d21},
		{Period: domain.PeriodLast30Days, Profit: d30},
		{Period: domain.PeriodMonthly, Profit: month},
	}, nil
}

func marshalHistory(history []domain.Payment) (string, error) {
	if history == nil {
		history = []domain.Payment{}
	}
	raw, err := json.Marshal(history)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func affectedOne(res sql.Result, err error, op string) error {
	if err != nil {
		return store.Upstream(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Upstream(op, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
