package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"kasirbutik/backend/internal/domain"
	"kasirbutik/backend/internal/imagestore"
	"kasirbutik/backend/internal/store"
)

// ListProducts filters by a case-insensitive substring of name or SKU.
// An empty search returns the whole catalog in storage order.
func (s *Service) ListProducts(ctx context.Context, search string) ([]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return products, nil
	}

	filtered := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), search) || strings.Contains(strings.ToLower(p.SKU), search) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

func (s *Service) GetProduct(ctx context.Context, sku string) (domain.Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return domain.Product{}, fmt.Errorf("%w: sku is required", store.ErrValidation)
	}
	product, err := s.repo.GetProduct(ctx, sku)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	req.SKU = strings.TrimSpace(req.SKU)
	req.Name = strings.TrimSpace(req.Name)

	if req.SKU == "" || req.Name == "" || req.CostPrice == nil || req.SellingPrice == nil || req.InitialStock == nil {
		return domain.Product{}, fmt.Errorf("%w: sku, name, cost_price, selling_price and initial_stock are required", store.ErrValidation)
	}
	if *req.CostPrice < 0 || *req.SellingPrice < 0 || *req.InitialStock < 0 {
		return domain.Product{}, fmt.Errorf("%w: prices and stock must not be negative", store.ErrValidation)
	}

	product := domain.Product{
		SKU:          req.SKU,
		Name:         req.Name,
		CostPrice:    *req.CostPrice,
		SellingPrice: *req.SellingPrice,
		InitialStock: *req.InitialStock,
		CurrentStock: *req.InitialStock,
		ImageURL:     strings.TrimSpace(req.ImageURL),
	}

	unlock, err := s.locker.Lock(ctx, lockKey("product", product.SKU))
	if err != nil {
		return domain.Product{}, err
	}
	defer unlock()

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	s.logger(ctx).Info("product created", zap.String("sku", created.SKU), zap.Int("stock", created.CurrentStock))
	return *created, nil
}

// UpdateProduct merges the provided fields. A current_stock value is
// applied as a manual correction and logged separately from sales.
func (s *Service) UpdateProduct(ctx context.Context, sku string, req domain.ProductUpdateRequest) (domain.Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return domain.Product{}, fmt.Errorf("%w: sku is required", store.ErrValidation)
	}

	unlock, err := s.locker.Lock(ctx, lockKey("product", sku))
	if err != nil {
		return domain.Product{}, err
	}
	defer unlock()

	existing, err := s.repo.GetProduct(ctx, sku)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, fmt.Errorf("%w: name must not be empty", store.ErrValidation)
		}
		updated.Name = name
	}
	if req.CostPrice != nil {
		if *req.CostPrice < 0 {
			return domain.Product{}, fmt.Errorf("%w: cost_price must not be negative", store.ErrValidation)
		}
		updated.CostPrice = *req.CostPrice
	}
	if req.SellingPrice != nil {
		if *req.SellingPrice < 0 {
			return domain.Product{}, fmt.Errorf("%w: selling_price must not be negative", store.ErrValidation)
		}
		updated.SellingPrice = *req.SellingPrice
	}
	if req.InitialStock != nil {
		if *req.InitialStock < 0 {
			return domain.Product{}, fmt.Errorf("%w: initial_stock must not be negative", store.ErrValidation)
		}
		updated.InitialStock = *req.InitialStock
	}
	if req.CurrentStock != nil {
		if *req.CurrentStock < 0 {
			return domain.Product{}, fmt.Errorf("%w: current_stock must not be negative", store.ErrValidation)
		}
		updated.CurrentStock = *req.CurrentStock
	}
	if req.ImageURL != nil {
		updated.ImageURL = strings.TrimSpace(*req.ImageURL)
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	if saved.CurrentStock != existing.CurrentStock {
		s.logStockCorrection(ctx, sku, existing.CurrentStock, saved.CurrentStock)
	}
	return *saved, nil
}

// AdjustStock overwrites the current stock with an absolute value.
func (s *Service) AdjustStock(ctx context.Context, sku string, req domain.StockAdjustRequest) (domain.Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return domain.Product{}, fmt.Errorf("%w: sku is required", store.ErrValidation)
	}
	if req.CurrentStock == nil {
		return domain.Product{}, fmt.Errorf("%w: current_stock is required", store.ErrValidation)
	}
	if *req.CurrentStock < 0 {
		return domain.Product{}, fmt.Errorf("%w: current_stock must not be negative", store.ErrValidation)
	}

	unlock, err := s.locker.Lock(ctx, lockKey("product", sku))
	if err != nil {
		return domain.Product{}, err
	}
	defer unlock()

	product, err := s.repo.GetProduct(ctx, sku)
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.repo.SetStock(ctx, sku, *req.CurrentStock); err != nil {
		return domain.Product{}, err
	}
	s.logStockCorrection(ctx, sku, product.CurrentStock, *req.CurrentStock)

	product.CurrentStock = *req.CurrentStock
	return *product, nil
}

func (s *Service) DeleteProduct(ctx context.Context, sku string) error {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return fmt.Errorf("%w: sku is required", store.ErrValidation)
	}

	unlock, err := s.locker.Lock(ctx, lockKey("product", sku))
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.repo.DeleteProduct(ctx, sku); err != nil {
		return err
	}
	s.logger(ctx).Info("product deleted", zap.String("sku", sku))
	return nil
}

// AttachImage validates and uploads a product photo, then stores its URL
// on the product.
func (s *Service) AttachImage(ctx context.Context, sku string, filename string, contentType string, content []byte) (domain.ProductImage, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return domain.ProductImage{}, fmt.Errorf("%w: sku is required", store.ErrValidation)
	}
	if err := imagestore.Validate(filename, contentType, content); err != nil {
		return domain.ProductImage{}, err
	}
	if _, err := s.repo.GetProduct(ctx, sku); err != nil {
		return domain.ProductImage{}, err
	}

	url, err := s.images.Upload(ctx, filename, content)
	if err != nil {
		return domain.ProductImage{}, err
	}

	if _, err := s.UpdateProduct(ctx, sku, domain.ProductUpdateRequest{ImageURL: &url}); err != nil {
		return domain.ProductImage{}, err
	}
	return domain.ProductImage{SKU: sku, ImageURL: url}, nil
}

func (s *Service) logStockCorrection(ctx context.Context, sku string, from int, to int) {
	s.logger(ctx).Warn("manual stock correction",
		zap.String("sku", sku),
		zap.Int("from", from),
		zap.Int("to", to),
	)
}
