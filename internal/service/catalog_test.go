package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirbutik/backend/internal/domain"
	"kasirbutik/backend/internal/store"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestListProductsSearch(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	seedProduct(t, env.svc, "BTK-001", 95000, 150000, 20)
	seedProduct(t, env.svc, "KRD-002", 30000, 55000, 40)

	all, err := env.svc.ListProducts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	bySKU, err := env.svc.ListProducts(ctx, "krd")
	require.NoError(t, err)
	require.Len(t, bySKU, 1)
	assert.Equal(t, "KRD-002", bySKU[0].SKU)

	byName, err := env.svc.ListProducts(ctx, "PRODUK btk")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "BTK-001", byName[0].SKU)
}

func TestCreateProduct(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	product := seedProduct(t, env.svc, "BTK-001", 95000, 150000, 20)
	assert.Equal(t, 20, product.CurrentStock)
	assert.Equal(t, 20, product.InitialStock)

	_, err := env.svc.CreateProduct(ctx, domain.ProductCreateRequest{
		SKU: "BTK-001", Name: "Dup", CostPrice: ptr(1.0), SellingPrice: ptr(2.0), InitialStock: ptr(1),
	})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)

	_, err = env.svc.CreateProduct(ctx, domain.ProductCreateRequest{SKU: "BTK-009", Name: "Tanpa harga", InitialStock: ptr(1)})
	assert.ErrorIs(t, err, store.ErrValidation)

	// Zero is a legitimate value, only absence is rejected.
	free, err := env.svc.CreateProduct(ctx, domain.ProductCreateRequest{
		SKU: "BONUS", Name: "Tas Kain", CostPrice: ptr(0.0), SellingPrice: ptr(0.0), InitialStock: ptr(0),
	})
	require.NoError(t, err)
	assert.Zero(t, free.CurrentStock)
}

func TestUpdateProductMergesProvidedFields(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	seedProduct(t, env.svc, "BTK-001", 95000, 150000, 20)

	updated, err := env.svc.UpdateProduct(ctx, "BTK-001", domain.ProductUpdateRequest{
		SellingPrice: ptr(165000.0),
		CurrentStock: ptr(18),
	})
	require.NoError(t, err)
	assert.Equal(t, "Produk BTK-001", updated.Name)
	assert.Equal(t, 95000.0, updated.CostPrice)
	assert.Equal(t, 165000.0, updated.SellingPrice)
	assert.Equal(t, 20, updated.InitialStock)
	assert.Equal(t, 18, updated.CurrentStock)

	_, err = env.svc.UpdateProduct(ctx, "NOPE", domain.ProductUpdateRequest{Name: ptr("x")})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = env.svc.UpdateProduct(ctx, "BTK-001", domain.ProductUpdateRequest{Name: ptr("  ")})
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestAdjustStock(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	seedProduct(t, env.svc, "BTK-001", 95000, 150000, 20)

	product, err := env.svc.AdjustStock(ctx, "BTK-001", domain.StockAdjustRequest{CurrentStock: ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, product.CurrentStock)

	stored, err := env.repo.GetProduct(ctx, "BTK-001")
	require.NoError(t, err)
	assert.Equal(t, 5, stored.CurrentStock)

	_, err = env.svc.AdjustStock(ctx, "BTK-001", domain.StockAdjustRequest{CurrentStock: ptr(-1)})
	assert.ErrorIs(t, err, store.ErrValidation)
	_, err = env.svc.AdjustStock(ctx, "BTK-001", domain.StockAdjustRequest{})
	assert.ErrorIs(t, err, store.ErrValidation)
	_, err = env.svc.AdjustStock(ctx, "NOPE", domain.StockAdjustRequest{CurrentStock: ptr(1)})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteProduct(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	seedProduct(t, env.svc, "BTK-001", 95000, 150000, 20)

	require.NoError(t, env.svc.DeleteProduct(ctx, "BTK-001"))
	_, err := env.svc.GetProduct(ctx, "BTK-001")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, env.svc.DeleteProduct(ctx, "BTK-001"), store.ErrNotFound)
}

func TestAttachImage(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	seedProduct(t, env.svc, "BTK-001", 95000, 150000, 20)

	img, err := env.svc.AttachImage(ctx, "BTK-001", "gamis.png", "image/png", pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "BTK-001", img.SKU)

	_, ok := env.images.Object(img.ImageURL)
	assert.True(t, ok)

	product, err := env.repo.GetProduct(ctx, "BTK-001")
	require.NoError(t, err)
	assert.Equal(t, img.ImageURL, product.ImageURL)

	_, err = env.svc.AttachImage(ctx, "NOPE", "gamis.png", "image/png", pngHeader)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = env.svc.AttachImage(ctx, "BTK-001", "katalog.pdf", "application/pdf", []byte("%PDF-1.4"))
	assert.ErrorIs(t, err, store.ErrUnsupportedMedia)
}
