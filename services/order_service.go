package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/pharmadirect/pharmacy-backend/common/errors"
	"github.com/pharmadirect/pharmacy-backend/kafka"
	"github.com/pharmadirect/pharmacy-backend/models"
	"github.com/pharmadirect/pharmacy-backend/repository"
)

// OrderService assembles orders from carts and answers order queries.
// It never mutates status directly; every advance goes through the
// repository's locked transition.
type OrderService interface {
	CreateOrderFromCart(ctx context.Context, userID string, addressID uuid.UUID) (*models.Order, error)
	GetOrder(ctx context.Context, userID string, orderID uuid.UUID) (*models.Order, error)
	GetUserOrders(ctx context.Context, userID string) ([]models.Order, error)
	GetOrdersPaged(ctx context.Context, filter repository.OrderFilter, page repository.PageRequest) (*repository.PagedResult[models.Order], error)
	ApproveOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	CompleteOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type orderServiceImpl struct {
	orders        repository.OrderRepository
	carts         repository.CartRepository
	addresses     repository.AddressRepository
	catalog       repository.ProductRepository
	prescriptions repository.PrescriptionRepository
	events        kafka.OrderEventPublisher
	logger        *zap.Logger
}

// NewOrderService creates a new OrderService. events may be nil to
// disable lifecycle event publishing.
func NewOrderService(
	orders repository.OrderRepository,
	carts repository.CartRepository,
	addresses repository.AddressRepository,
	catalog repository.ProductRepository,
	prescriptions repository.PrescriptionRepository,
	events kafka.OrderEventPublisher,
	logger *zap.Logger,
) OrderService {
	return &orderServiceImpl{
		orders:        orders,
		carts:         carts,
		addresses:     addresses,
		catalog:       catalog,
		prescriptions: prescriptions,
		events:        events,
		logger:        logger,
	}
}

// CreateOrderFromCart snapshots the user's cart into an immutable
// order: unit price, product name and the Rx flag are frozen per line,
// and the total is computed from the frozen lines so later catalog
// edits cannot drift it. The cart is NOT cleared here; clearing is
// deferred to payment confirmation so an abandoned checkout loses
// nothing.
func (s *orderServiceImpl) CreateOrderFromCart(ctx context.Context, userID string, addressID uuid.UUID) (*models.Order, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	if cart == nil || cart.Empty() {
		return nil, apperrors.Validation("cart is empty")
	}

	address, err := s.addresses.FindByIDAndUser(ctx, addressID, userID)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	if address == nil {
		return nil, apperrors.NotFound("address not found")
	}

	var items []models.OrderItem
	var total int64
	for _, line := range cart.Items {
		product, err := s.catalog.FindByID(ctx, line.ProductID)
		if err != nil {
			return nil, apperrors.Persistence(err)
		}
		if product == nil {
			s.logger.Warn("cart line references missing product, skipping",
				zap.String("user_id", userID),
				zap.String("product_id", line.ProductID.String()),
			)
			continue
		}
		item := models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   product.Price,
			RxRequired:  product.RxRequired,
		}
		items = append(items, item)
		total += item.Extension()
	}
	if len(items) == 0 {
		return nil, apperrors.Validation("cart is empty")
	}

	order := &models.Order{
		UserID:      userID,
		AddressID:   address.ID,
		ShipLine1:   address.Line1,
		ShipCity:    address.City,
		ShipRegion:  address.Region,
		OrderDate:   time.Now().UTC(),
		Status:      models.StatusPending,
		TotalAmount: total,
		Items:       items,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, apperrors.Persistence(err)
	}

	if order.RequiresPrescription() {
		s.linkAvailablePrescription(ctx, order)
	}

	s.publish("order_created", order, "")

	return order, nil
}

// linkAvailablePrescription attaches the user's most recent unassigned
// prescription, supporting the upload-before-checkout flow. Failure to
// link is logged, not fatal: the customer can still upload one against
// the order afterwards.
func (s *orderServiceImpl) linkAvailablePrescription(ctx context.Context, order *models.Order) {
	unassigned, err := s.prescriptions.FindUnassignedByUser(ctx, order.UserID)
	if err != nil {
		s.logger.Warn("failed to look up unassigned prescriptions",
			zap.String("user_id", order.UserID), zap.Error(err))
		return
	}
	for i := range unassigned {
		p := &unassigned[i]
		if !p.Available() {
			continue
		}
		if err := s.prescriptions.Assign(ctx, p.ID, order.ID); err != nil {
			s.logger.Warn("failed to assign prescription to order",
				zap.String("prescription_id", p.ID.String()), zap.Error(err))
			return
		}
		if err := s.orders.SetPrescriptionID(ctx, order.ID, p.ID); err != nil {
			s.logger.Warn("failed to record prescription on order",
				zap.String("order_id", order.ID.String()), zap.Error(err))
			return
		}
		order.PrescriptionID = &p.ID
		return
	}
}

// GetOrder loads one order scoped to its owner.
func (s *orderServiceImpl) GetOrder(ctx context.Context, userID string, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	if order == nil || order.UserID != userID {
		return nil, apperrors.NotFound("order not found")
	}
	return order, nil
}

func (s *orderServiceImpl) GetUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	orders, err := s.orders.FindByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	return orders, nil
}

// GetOrdersPaged is the admin/reporting query; normalization of paging
// and filters happens below the call, never in controllers.
func (s *orderServiceImpl) GetOrdersPaged(ctx context.Context, filter repository.OrderFilter, page repository.PageRequest) (*repository.PagedResult[models.Order], error) {
	result, err := s.orders.FindPaged(ctx, filter, page)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	return result, nil
}

// ApproveOrder moves the order into the fulfillable state. Orders with
// Rx-required lines must carry an Approved prescription; for everything
// else staff approval alone suffices. The refused case is a normal
// business outcome, reported as false.
func (s *orderServiceImpl) ApproveOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return false, apperrors.Persistence(err)
	}
	if order == nil {
		return false, apperrors.NotFound("order not found")
	}

	if order.RequiresPrescription() {
		if order.PrescriptionID == nil {
			return false, nil
		}
		p, err := s.prescriptions.FindByID(ctx, *order.PrescriptionID)
		if err != nil {
			return false, apperrors.Persistence(err)
		}
		if p == nil || p.Status != models.PrescriptionApproved {
			return false, nil
		}
	}

	order, applied, err := s.orders.Transition(ctx, orderID, models.StatusApproved, nil)
	if err != nil {
		return false, apperrors.Persistence(err)
	}
	if applied {
		s.publish("order_approved", order, "")
	}
	return applied, nil
}

// CompleteOrder marks a fulfilled order Completed. The transition table
// only allows this from Approved, which is itself gated on prescription
// approval for Rx orders.
func (s *orderServiceImpl) CompleteOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	order, applied, err := s.orders.Transition(ctx, orderID, models.StatusCompleted, nil)
	if err != nil {
		return false, apperrors.Persistence(err)
	}
	if order == nil {
		return false, apperrors.NotFound("order not found")
	}
	if applied {
		s.publish("order_completed", order, "")
	}
	return applied, nil
}

func (s *orderServiceImpl) publish(eventType string, order *models.Order, prescriptionID string) {
	if s.events == nil || order == nil {
		return
	}
	evt := models.OrderEvent{
		Type:           eventType,
		OrderID:        order.ID.String(),
		UserID:         order.UserID,
		Status:         order.Status,
		PrescriptionID: prescriptionID,
		Timestamp:      time.Now().UTC(),
	}
	if err := s.events.SendOrderEvent(evt); err != nil {
		s.logger.Warn("order event publish failed",
			zap.String("type", eventType),
			zap.String("order_id", evt.OrderID),
			zap.Error(err),
		)
	}
}
