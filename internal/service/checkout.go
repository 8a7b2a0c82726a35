package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"kasirbutik/backend/internal/domain"
	"kasirbutik/backend/internal/store"
)

// debtTermDays is the default credit term for a checkout paid on debt.
const debtTermDays = 30

// Checkout validates the cart against current stock, records one
// transaction line per item and decrements stock. Every line is checked
// before anything is written. The write loop itself is not atomic: a
// failure part way leaves earlier lines committed.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	items, err := s.validateCheckout(req)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	skus := make([]string, 0, len(items))
	for _, item := range items {
		skus = append(skus, lockKey("product", item.SKU))
	}
	unlock, err := s.locker.Lock(ctx, skus...)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	defer unlock()

	catalog, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	bySKU := make(map[string]domain.Product, len(catalog))
	for _, p := range catalog {
		bySKU[p.SKU] = p
	}

	now := s.clock()
	date := now.Format(domain.DateLayout)

	lines := make([]domain.CheckoutLine, 0, len(items))
	requested := make(map[string]int, len(items))
	var totalAmount, totalProfit float64
	for _, item := range items {
		product, ok := bySKU[item.SKU]
		if !ok {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: product %s", store.ErrNotFound, item.SKU)
		}
		requested[item.SKU] += item.Qty
		if requested[item.SKU] > product.CurrentStock {
			return domain.CheckoutResponse{}, fmt.Errorf("%w for %s: available %d, requested %d",
				store.ErrInsufficientStock, product.Name, product.CurrentStock, requested[item.SKU])
		}

		total := product.SellingPrice * float64(item.Qty)
		profit := total - product.CostPrice*float64(item.Qty)
		lines = append(lines, domain.CheckoutLine{
			TransactionLine: domain.TransactionLine{
				Date:         date,
				SKU:          product.SKU,
				ProductName:  product.Name,
				Qty:          item.Qty,
				SellingPrice: product.SellingPrice,
				CostPrice:    product.CostPrice,
				LineTotal:    total,
				LineProfit:   profit,
			},
			NewStock: product.CurrentStock - requested[item.SKU],
		})
		totalAmount += total
		totalProfit += profit
	}

	// Past this point the request may be cancelled by the client, but the
	// writes must run to the end or fail on their own.
	writeCtx := context.WithoutCancel(ctx)

	resp := domain.CheckoutResponse{
		Date:          date,
		PaymentMethod: req.PaymentMethod,
		Items:         lines,
		TotalAmount:   totalAmount,
		TotalProfit:   totalProfit,
	}

	if req.PaymentMethod == domain.PaymentDebt {
		info := req.CustomerInfo
		dueDate := strings.TrimSpace(info.DueDate)
		if dueDate == "" {
			dueDate = now.AddDate(0, 0, debtTermDays).Format(domain.DateLayout)
		}
		notes := strings.TrimSpace(info.Notes)
		if notes == "" {
			notes = "Checkout " + date
		}
		debt, err := s.createDebt(writeCtx, strings.TrimSpace(info.Name), totalAmount, 0, dueDate, notes)
		if err != nil {
			return domain.CheckoutResponse{}, err
		}
		resp.Debt = &debt
	}

	for i, line := range lines {
		if err := s.commitLine(writeCtx, line); err != nil {
			s.metrics.RecordPartialCommit()
			s.logger(ctx).Error("checkout partially committed",
				zap.Error(err),
				zap.String("failed_sku", line.SKU),
				zap.Int("committed_lines", i),
				zap.Strings("committed_skus", committedSKUs(lines[:i])),
			)
			return domain.CheckoutResponse{}, err
		}
	}

	s.metrics.RecordCheckout(string(req.PaymentMethod), len(lines))
	s.logger(ctx).Info("checkout completed",
		zap.String("payment_method", string(req.PaymentMethod)),
		zap.Int("lines", len(lines)),
		zap.Float64("total", totalAmount),
	)
	return resp, nil
}

func (s *Service) commitLine(ctx context.Context, line domain.CheckoutLine) error {
	if err := s.repo.AppendTransactionLine(ctx, line.TransactionLine); err != nil {
		return err
	}
	return s.repo.SetStock(ctx, line.SKU, line.NewStock)
}

func (s *Service) validateCheckout(req domain.CheckoutRequest) ([]domain.CartItem, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", store.ErrValidation)
	}
	items := make([]domain.CartItem, 0, len(req.Items))
	for i, item := range req.Items {
		item.SKU = strings.TrimSpace(item.SKU)
		if item.SKU == "" {
			return nil, fmt.Errorf("%w: item %d has no sku", store.ErrValidation, i+1)
		}
		if item.Qty < 1 {
			return nil, fmt.Errorf("%w: item %s needs a quantity of at least 1", store.ErrValidation, item.SKU)
		}
		items = append(items, item)
	}

	switch req.PaymentMethod {
	case domain.PaymentCash:
	case domain.PaymentDebt:
		if req.CustomerInfo == nil || strings.TrimSpace(req.CustomerInfo.Name) == "" {
			return nil, fmt.Errorf("%w: customer name is required for debt payment", store.ErrValidation)
		}
		if due := strings.TrimSpace(req.CustomerInfo.DueDate); due != "" {
			if _, err := s.parseDate("due_date", due); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("%w: unknown payment method %q", store.ErrValidation, req.PaymentMethod)
	}
	return items, nil
}

func committedSKUs(lines []domain.CheckoutLine) []string {
	skus := make([]string, 0, len(lines))
	for _, l := range lines {
		skus = append(skus, l.SKU)
	}
	return skus
}
