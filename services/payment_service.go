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

// PaymentService coordinates the external payment processor with order
// state. Its central contract is idempotency: the same session id may
// be confirmed any number of times (redirect + webhook + retries)
// without double-applying the transition, the cart clear or the event.
type PaymentService interface {
	CreateCheckoutSession(ctx context.Context, orderID uuid.UUID, successURL, cancelURL string) (*SessionHandle, error)
	ConfirmPayment(ctx context.Context, sessionID string) (bool, error)
	CancelUnpaidOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type paymentServiceImpl struct {
	orders  repository.OrderRepository
	carts   repository.CartRepository
	gateway PaymentGateway
	events  kafka.OrderEventPublisher
	timeout time.Duration
	logger  *zap.Logger
}

// NewPaymentService creates a new PaymentService. timeout bounds every
// call to the processor.
func NewPaymentService(
	orders repository.OrderRepository,
	carts repository.CartRepository,
	gateway PaymentGateway,
	events kafka.OrderEventPublisher,
	timeout time.Duration,
	logger *zap.Logger,
) PaymentService {
	return &paymentServiceImpl{
		orders:  orders,
		carts:   carts,
		gateway: gateway,
		events:  events,
		timeout: timeout,
		logger:  logger,
	}
}

// CreateCheckoutSession opens a processor session for the order and
// records the session id. A processor failure or timeout leaves the
// order Pending with no session recorded, so the caller can simply
// retry.
func (s *paymentServiceImpl) CreateCheckoutSession(ctx context.Context, orderID uuid.UUID, successURL, cancelURL string) (*SessionHandle, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	if order == nil {
		return nil, apperrors.NotFound("order not found")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	handle, err := s.gateway.CreateCheckoutSession(callCtx, order, successURL, cancelURL)
	if err != nil {
		return nil, apperrors.External("payment processor unavailable", err)
	}

	if err := s.orders.SetSessionID(ctx, order.ID, handle.SessionID); err != nil {
		return nil, apperrors.Persistence(err)
	}

	s.logger.Info("checkout session created",
		zap.String("order_id", order.ID.String()),
		zap.String("session_id", handle.SessionID),
	)
	return handle, nil
}

// ConfirmPayment applies a paid session to its order. Safe to call from
// the unauthenticated webhook and from the browser redirect, in any
// order, any number of times. An unknown session is a quiet false, not
// an error.
func (s *paymentServiceImpl) ConfirmPayment(ctx context.Context, sessionID string) (bool, error) {
	order, err := s.orders.FindBySessionID(ctx, sessionID)
	if err != nil {
		return false, apperrors.Persistence(err)
	}
	if order == nil {
		return false, nil
	}

	if paymentApplied(order.Status) {
		return true, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sess, err := s.gateway.GetCheckoutSession(callCtx, sessionID)
	if err != nil {
		return false, apperrors.External("payment processor unavailable", err)
	}
	if !sess.Paid {
		return false, nil
	}

	order, applied, err := s.orders.Transition(ctx, order.ID, models.StatusPaymentReceived, func(o *models.Order) {
		if sess.PaymentIntentID != "" {
			o.PaymentIntentID = &sess.PaymentIntentID
		}
	})
	if err != nil {
		return false, apperrors.Persistence(err)
	}
	if order == nil {
		return false, nil
	}

	if !applied {
		// Lost the race to a concurrent confirmation, or the order moved
		// on; either way the side effects already ran exactly once.
		return paymentApplied(order.Status), nil
	}

	if err := s.carts.Delete(ctx, order.UserID); err != nil {
		s.logger.Warn("cart clear after payment failed",
			zap.String("user_id", order.UserID), zap.Error(err))
	}

	s.logger.Info("payment confirmed",
		zap.String("order_id", order.ID.String()),
		zap.String("session_id", sessionID),
	)

	if s.events != nil {
		evt := models.OrderEvent{
			Type:      "order_payment_received",
			OrderID:   order.ID.String(),
			UserID:    order.UserID,
			Status:    order.Status,
			Timestamp: time.Now().UTC(),
		}
		if err := s.events.SendOrderEvent(evt); err != nil {
			s.logger.Warn("order event publish failed",
				zap.String("order_id", evt.OrderID), zap.Error(err))
		}
	}
	return true, nil
}

// paymentApplied reports whether the order has already absorbed a
// successful payment, directly or via a later state.
func paymentApplied(status models.OrderStatus) bool {
	switch status {
	case models.StatusPaymentReceived, models.StatusApproved, models.StatusCompleted:
		return true
	}
	return false
}

// CancelUnpaidOrder deletes the order while it is still Pending. Once
// paid or approved the order is out of reach of this path; the call is
// a silent no-op then.
func (s *paymentServiceImpl) CancelUnpaidOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	deleted, err := s.orders.DeleteIfPending(ctx, orderID)
	if err != nil {
		return false, apperrors.Persistence(err)
	}
	if deleted {
		s.logger.Info("unpaid order cancelled", zap.String("order_id", orderID.String()))
	}
	return deleted, nil
}
