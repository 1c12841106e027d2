package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/pharmadirect/pharmacy-backend/common/errors"
	"github.com/pharmadirect/pharmacy-backend/models"
	"github.com/pharmadirect/pharmacy-backend/repository"
)

// CartService owns per-user cart state. Carts are addressed by user id
// only; callers never see a cart id.
type CartService interface {
	GetOrCreateCart(ctx context.Context, userID string) (*models.Cart, error)
	AddItem(ctx context.Context, userID string, productID uuid.UUID, quantity int) (*models.CartItem, error)
	UpdateItem(ctx context.Context, userID string, productID uuid.UUID, quantity int) (*models.CartItem, error)
	RemoveItem(ctx context.Context, userID string, productID uuid.UUID) error
	Clear(ctx context.Context, userID string) error
	Total(ctx context.Context, userID string) (int64, error)
	ItemCount(ctx context.Context, userID string) (int, error)
}

type cartServiceImpl struct {
	carts   repository.CartRepository
	catalog repository.ProductRepository
	logger  *zap.Logger
}

// NewCartService creates a new CartService.
func NewCartService(carts repository.CartRepository, catalog repository.ProductRepository, logger *zap.Logger) CartService {
	return &cartServiceImpl{carts: carts, catalog: catalog, logger: logger}
}

// GetOrCreateCart returns the user's cart, persisting an empty one on
// first use. Idempotent.
func (s *cartServiceImpl) GetOrCreateCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	if cart != nil {
		return cart, nil
	}

	cart = &models.Cart{UserID: userID, Items: []models.CartItem{}}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, apperrors.Persistence(err)
	}
	return cart, nil
}

// AddItem merges quantity into an existing line for the product, or
// appends a new line. The merge happens inside the repository's
// optimistic loop so concurrent adds cannot create duplicate lines.
func (s *cartServiceImpl) AddItem(ctx context.Context, userID string, productID uuid.UUID, quantity int) (*models.CartItem, error) {
	if quantity <= 0 {
		return nil, apperrors.Validation("quantity must be greater than zero")
	}

	product, err := s.catalog.FindByID(ctx, productID)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	if product == nil {
		return nil, apperrors.NotFound("product not found")
	}

	var line models.CartItem
	_, err = s.carts.Mutate(ctx, userID, func(cart *models.Cart) error {
		if i := cart.Find(productID); i >= 0 {
			cart.Items[i].Quantity += quantity
			line = cart.Items[i]
			return nil
		}
		line = models.CartItem{ProductID: productID, Quantity: quantity}
		cart.Items = append(cart.Items, line)
		return nil
	})
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	return &line, nil
}

// UpdateItem overwrites the line's quantity; a quantity <= 0 removes
// the line and returns nil. Fails when the user has no cart or no
// matching line.
func (s *cartServiceImpl) UpdateItem(ctx context.Context, userID string, productID uuid.UUID, quantity int) (*models.CartItem, error) {
	existing, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	if existing == nil {
		return nil, apperrors.NotFound("cart not found")
	}

	var line *models.CartItem
	notFound := apperrors.NotFound("cart item not found")
	_, err = s.carts.Mutate(ctx, userID, func(cart *models.Cart) error {
		i := cart.Find(productID)
		if i < 0 {
			return notFound
		}
		if quantity <= 0 {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			line = nil
			return nil
		}
		cart.Items[i].Quantity = quantity
		item := cart.Items[i]
		line = &item
		return nil
	})
	if err == notFound {
		return nil, notFound
	}
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	return line, nil
}

// RemoveItem deletes the product's line if present. Removal is
// idempotent: absence of the cart or the line is not an error.
func (s *cartServiceImpl) RemoveItem(ctx context.Context, userID string, productID uuid.UUID) error {
	existing, err := s.carts.Get(ctx, userID)
	if err != nil {
		return apperrors.Persistence(err)
	}
	if existing == nil || existing.Find(productID) < 0 {
		return nil
	}

	_, err = s.carts.Mutate(ctx, userID, func(cart *models.Cart) error {
		if i := cart.Find(productID); i >= 0 {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
		}
		return nil
	})
	if err != nil {
		return apperrors.Persistence(err)
	}
	return nil
}

// Clear drops every line. No-op when the cart is absent.
func (s *cartServiceImpl) Clear(ctx context.Context, userID string) error {
	if err := s.carts.Delete(ctx, userID); err != nil {
		return apperrors.Persistence(err)
	}
	return nil
}

// Total prices the cart against the live catalog. Lines whose product
// can no longer be resolved are skipped, not failed; that is a
// data-integrity signal worth logging, not a reason to block the
// customer.
func (s *cartServiceImpl) Total(ctx context.Context, userID string) (int64, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return 0, apperrors.Persistence(err)
	}
	if cart == nil {
		return 0, nil
	}

	var total int64
	for _, item := range cart.Items {
		product, err := s.catalog.FindByID(ctx, item.ProductID)
		if err != nil {
			return 0, apperrors.Persistence(err)
		}
		if product == nil {
			s.logger.Warn("cart line references missing product",
				zap.String("user_id", userID),
				zap.String("product_id", item.ProductID.String()),
			)
			continue
		}
		total += product.Price * int64(item.Quantity)
	}
	return total, nil
}

// ItemCount is the sum of quantities across lines.
func (s *cartServiceImpl) ItemCount(ctx context.Context, userID string) (int, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return 0, apperrors.Persistence(err)
	}
	if cart == nil {
		return 0, nil
	}
	return cart.ItemCount(), nil
}
