package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/pharmadirect/pharmacy-backend/common/errors"
	"github.com/pharmadirect/pharmacy-backend/models"
)

func newTestProduct(name string, price int64, rx bool) *models.Product {
	return &models.Product{
		ID:         uuid.New(),
		Name:       name,
		Price:      price,
		RxRequired: rx,
		CategoryID: uuid.New(),
	}
}

func TestAddItemMergesDuplicateLines(t *testing.T) {
	product := newTestProduct("Ibuprofen 200mg", 599, false)
	carts := newMemCartRepo()
	svc := NewCartService(carts, newMemProductRepo(product), zap.NewNop())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "user-1", product.ID, 2)
	require.NoError(t, err)
	line, err := svc.AddItem(ctx, "user-1", product.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, line.Quantity)

	cart, err := svc.GetOrCreateCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1, "adding the same product twice must merge, not duplicate")
	assert.Equal(t, 5, cart.ItemCount())
}

func TestAddItemRejectsNonPositiveQuantity(t *testing.T) {
	product := newTestProduct("Ibuprofen 200mg", 599, false)
	svc := NewCartService(newMemCartRepo(), newMemProductRepo(product), zap.NewNop())

	_, err := svc.AddItem(context.Background(), "user-1", product.ID, 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = svc.AddItem(context.Background(), "user-1", product.ID, -3)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestAddItemUnknownProduct(t *testing.T) {
	svc := NewCartService(newMemCartRepo(), newMemProductRepo(), zap.NewNop())

	_, err := svc.AddItem(context.Background(), "user-1", uuid.New(), 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestUpdateItemZeroQuantityRemovesLine(t *testing.T) {
	product := newTestProduct("Ibuprofen 200mg", 599, false)
	svc := NewCartService(newMemCartRepo(), newMemProductRepo(product), zap.NewNop())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "user-1", product.ID, 2)
	require.NoError(t, err)

	line, err := svc.UpdateItem(ctx, "user-1", product.ID, 0)
	require.NoError(t, err)
	assert.Nil(t, line)

	cart, err := svc.GetOrCreateCart(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, cart.Empty())
}

func TestUpdateItemMissingLine(t *testing.T) {
	product := newTestProduct("Ibuprofen 200mg", 599, false)
	svc := NewCartService(newMemCartRepo(), newMemProductRepo(product), zap.NewNop())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "user-1", product.ID, 1)
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, "user-1", uuid.New(), 4)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	product := newTestProduct("Ibuprofen 200mg", 599, false)
	svc := NewCartService(newMemCartRepo(), newMemProductRepo(product), zap.NewNop())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "user-1", product.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveItem(ctx, "user-1", product.ID))
	require.NoError(t, svc.RemoveItem(ctx, "user-1", product.ID))
	require.NoError(t, svc.RemoveItem(ctx, "nobody", product.ID))
}

func TestTotalSkipsUnresolvableProducts(t *testing.T) {
	product := newTestProduct("Ibuprofen 200mg", 599, false)
	carts := newMemCartRepo()
	products := newMemProductRepo(product)
	svc := NewCartService(carts, products, zap.NewNop())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "user-1", product.ID, 2)
	require.NoError(t, err)

	// Sneak an orphaned line into storage, as if the product was removed
	// from the catalog after it was carted.
	_, err = carts.Mutate(ctx, "user-1", func(cart *models.Cart) error {
		cart.Items = append(cart.Items, models.CartItem{ProductID: uuid.New(), Quantity: 10})
		return nil
	})
	require.NoError(t, err)

	total, err := svc.Total(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1198), total)
}

func TestItemCountSumsQuantities(t *testing.T) {
	first := newTestProduct("Ibuprofen 200mg", 599, false)
	second := newTestProduct("Vitamin D3", 1250, false)
	svc := NewCartService(newMemCartRepo(), newMemProductRepo(first, second), zap.NewNop())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "user-1", first.ID, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "user-1", second.ID, 3)
	require.NoError(t, err)

	count, err := svc.ItemCount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	count, err = svc.ItemCount(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, count)
}
