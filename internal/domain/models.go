package domain

import "time"

// DateLayout is the calendar-date format used for every persisted date.
const DateLayout = "2006-01-02"

type Product struct {
	SKU          string  `json:"sku"`
	Name         string  `json:"name"`
	CostPrice    float64 `json:"cost_price"`
	SellingPrice float64 `json:"selling_price"`
	InitialStock int     `json:"initial_stock"`
	CurrentStock int     `json:"current_stock"`
	ImageURL     string  `json:"image_url"`
}

type ProductCreateRequest struct {
	SKU          string   `json:"sku"`
	Name         string   `json:"name"`
	CostPrice    *float64 `json:"cost_price"`
	SellingPrice *float64 `json:"selling_price"`
	InitialStock *int     `json:"initial_stock"`
	ImageURL     string   `json:"image_url,omitempty"`
}

type ProductUpdateRequest struct {
	Name         *string  `json:"name,omitempty"`
	CostPrice    *float64 `json:"cost_price,omitempty"`
	SellingPrice *float64 `json:"selling_price,omitempty"`
	InitialStock *int     `json:"initial_stock,omitempty"`
	CurrentStock *int     `json:"current_stock,omitempty"`
	ImageURL     *string  `json:"image_url,omitempty"`
}

type StockAdjustRequest struct {
	CurrentStock *int `json:"current_stock"`
}

type ProductImage struct {
	SKU      string `json:"sku"`
	ImageURL string `json:"image_url"`
}

// TransactionLine is one row of the append-only transaction log.
type TransactionLine struct {
	Date         string  `json:"date"`
	SKU          string  `json:"sku"`
	ProductName  string  `json:"product_name"`
	Qty          int     `json:"qty"`
	SellingPrice float64 `json:"selling_price"`
	CostPrice    float64 `json:"cost_price"`
	LineTotal    float64 `json:"line_total"`
	LineProfit   float64 `json:"line_profit"`
}

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentDebt PaymentMethod = "debt"
)

type CartItem struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

type CustomerInfo struct {
	Name    string `json:"name"`
	DueDate string `json:"due_date,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

type CheckoutRequest struct {
	Items         []CartItem    `json:"items"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	CustomerInfo  *CustomerInfo `json:"customer_info,omitempty"`
}

type CheckoutLine struct {
	TransactionLine
	NewStock int `json:"new_stock"`
}

type CheckoutResponse struct {
	Date          string         `json:"date"`
	PaymentMethod PaymentMethod  `json:"payment_method"`
	Items         []CheckoutLine `json:"items"`
	TotalAmount   float64        `json:"total_amount"`
	TotalProfit   float64        `json:"total_profit"`
	Debt          *Debt          `json:"debt,omitempty"`
}

type DebtStatus string

const (
	DebtActive  DebtStatus = "active"
	DebtPaidOff DebtStatus = "paid_off"
	DebtOverdue DebtStatus = "overdue"
)

type Payment struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

type Debt struct {
	ID                 string     `json:"id"`
	DebtorName         string     `json:"debtor_name"`
	TotalDebt          float64    `json:"total_debt"`
	RemainingBalance   float64    `json:"remaining_balance"`
	MonthlyInstallment float64    `json:"monthly_installment"`
	CreatedDate        string     `json:"created_date"`
	DueDate            string     `json:"due_date"`
	Status             DebtStatus `json:"status"`
	Notes              string     `json:"notes"`
	PaymentHistory     []Payment  `json:"payment_history"`
}

// DebtStatusAt derives the status of a debt. A debt is overdue only once
// the whole due date has passed in now's location, so it stays active for
// the entire due day rather than from UTC midnight.
func DebtStatusAt(remaining float64, dueDate string, now time.Time) DebtStatus {
	if remaining <= 0 {
		return DebtPaidOff
	}
	due, err := time.ParseInLocation(DateLayout, dueDate, now.Location())
	if err != nil {
		return DebtActive
	}
	if !now.Before(due.AddDate(0, 0, 1)) {
		return DebtOverdue
	}
	return DebtActive
}

type DebtCreateRequest struct {
	DebtorName         string   `json:"debtor_name"`
	TotalDebt          *float64 `json:"total_debt"`
	MonthlyInstallment *float64 `json:"monthly_installment"`
	DueDate            string   `json:"due_date"`
	Notes              string   `json:"notes,omitempty"`
}

type DebtUpdateRequest struct {
	DebtorName         *string  `json:"debtor_name,omitempty"`
	TotalDebt          *float64 `json:"total_debt,omitempty"`
	MonthlyInstallment *float64 `json:"monthly_installment,omitempty"`
	DueDate            *string  `json:"due_date,omitempty"`
	Notes              *string  `json:"notes,omitempty"`
}

type PaymentRequest struct {
	Amount *float64 `json:"amount"`
	Date   string   `json:"date,omitempty"`
}

type PaymentResponse struct {
	Debt     Debt    `json:"debt"`
	Payment  Payment `json:"payment"`
	Overpaid float64 `json:"overpaid"`
}

type PeriodID string

const (
	PeriodToday      PeriodID = "today"
	PeriodLast7Days  PeriodID = "last_7_days"
	PeriodLast14Days PeriodID = "last_14_days"
	PeriodLast21Days PeriodID = "last_21_days"
	PeriodLast30Days PeriodID = "last_30_days"
	PeriodMonthly    PeriodID = "monthly"
)

// Periods lists every dashboard period in chart order.
var Periods = []PeriodID{
	PeriodToday,
	PeriodLast7Days,
	PeriodLast14Days,
	PeriodLast21Days,
	PeriodLast30Days,
	PeriodMonthly,
}

// ChartLabel is the display label used by the profit chart.
func (p PeriodID) ChartLabel() string {
	switch p {
	case PeriodToday:
		return "Today"
	case PeriodLast7Days:
		return "7 Days"
	case PeriodLast14Days:
		return "14 Days"
	case PeriodLast21Days:
		return "21 Days"
	case PeriodLast30Days:
		return "30 Days"
	case PeriodMonthly:
		return "Monthly"
	}
	return string(p)
}

type DashboardPeriod struct {
	Period PeriodID `json:"period"`
	Profit float64  `json:"profit"`
}

type SalesBucket struct {
	Date             string  `json:"date,omitempty"`
	DayName          string  `json:"day_name,omitempty"`
	Week             int     `json:"week,omitempty"`
	StartDate        string  `json:"start_date,omitempty"`
	EndDate          string  `json:"end_date,omitempty"`
	Revenue          float64 `json:"revenue"`
	Profit           float64 `json:"profit"`
	ItemsSold        int     `json:"items_sold"`
	TransactionCount int     `json:"transaction_count"`
}

type SalesTotals struct {
	Revenue          float64 `json:"revenue"`
	Profit           float64 `json:"profit"`
	ItemsSold        int     `json:"items_sold"`
	TransactionCount int     `json:"transaction_count"`
}

type DailySales struct {
	Date         string            `json:"date"`
	Totals       SalesTotals       `json:"totals"`
	Transactions []TransactionLine `json:"transactions"`
}

type PeriodSales struct {
	Totals  SalesTotals   `json:"totals"`
	Buckets []SalesBucket `json:"buckets"`
}

type SalesSummary struct {
	Today   DailySales  `json:"today"`
	Weekly  PeriodSales `json:"weekly"`
	Monthly PeriodSales `json:"monthly"`
}

type InventorySummary struct {
	TotalProducts    int       `json:"total_products"`
	TotalStock       int       `json:"total_stock"`
	LowStockCount    int       `json:"low_stock_count"`
	LowStockProducts []Product `json:"low_stock_products"`
}

type DashboardStats struct {
	Profits   []DashboardPeriod `json:"profits"`
	Inventory InventorySummary  `json:"inventory"`
}

type ProfitChartPoint struct {
	Period PeriodID `json:"period"`
	Label  string   `json:"label"`
	Profit float64  `json:"profit"`
}

type ReportRequest struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

type SalesReport struct {
	Title       string            `json:"title"`
	PeriodLabel string            `json:"period_label"`
	GeneratedAt time.Time         `json:"generated_at"`
	Lines       []TransactionLine `json:"lines"`
	Totals      SalesTotals       `json:"totals"`
}

type Actor struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}
