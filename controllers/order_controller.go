package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/pharmadirect/pharmacy-backend/common/errors"
	"github.com/pharmadirect/pharmacy-backend/models"
	"github.com/pharmadirect/pharmacy-backend/repository"
	"github.com/pharmadirect/pharmacy-backend/services"
)

type OrderController struct {
	Orders   services.OrderService
	Payments services.PaymentService
	Logger   *zap.Logger
}

func NewOrderController(orders services.OrderService, payments services.PaymentService, logger *zap.Logger) *OrderController {
	return &OrderController{Orders: orders, Payments: payments, Logger: logger}
}

// CreateOrder snapshots the caller's cart into a Pending order shipped
// to one of their saved addresses.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req struct {
		AddressID uuid.UUID `json:"address_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	order, err := oc.Orders.CreateOrderFromCart(c.Request.Context(), uid, req.AddressID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GetOrders lists the caller's orders, newest first.
func (oc *OrderController) GetOrders(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	orders, err := oc.Orders.GetUserOrders(c.Request.Context(), uid)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GetOrderByID returns a single order; ownership is part of the lookup.
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := oc.Orders.GetOrder(c.Request.Context(), uid, orderID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// CancelOrder removes the order while it is still unpaid. Once payment
// has landed the order is out of reach of this path.
func (oc *OrderController) CancelOrder(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	// Ownership check before the delete; admins go through their own routes.
	if _, err := oc.Orders.GetOrder(c.Request.Context(), uid, orderID); err != nil {
		apperrors.Respond(c, err)
		return
	}

	cancelled, err := oc.Payments.CancelUnpaidOrder(c.Request.Context(), orderID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled})
}

// ApproveOrder is the staff action moving an order into fulfillment.
// Refusals (missing or unapproved prescription, wrong current state)
// come back as a conflict, never as a forced transition.
func (oc *OrderController) ApproveOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	applied, err := oc.Orders.ApproveOrder(c.Request.Context(), orderID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if !applied {
		apperrors.Respond(c, apperrors.StateConflict("order cannot be approved in its current state"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": true, "status": models.StatusApproved})
}

// CompleteOrder marks a fulfilled order Completed.
func (oc *OrderController) CompleteOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	applied, err := oc.Orders.CompleteOrder(c.Request.Context(), orderID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if !applied {
		apperrors.Respond(c, apperrors.StateConflict("order cannot be completed in its current state"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": true, "status": models.StatusCompleted})
}

// GetAllOrders is the admin/reporting listing: filtered, sorted, paged.
// Out-of-range paging values are clamped, unknown sort keys fall back to
// the default ordering; only a malformed status or date is rejected.
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	var page repository.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid paging parameters"})
		return
	}

	filter, err := parseOrderFilter(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	result, err := oc.Orders.GetOrdersPaged(c.Request.Context(), filter, page)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":       result.Items,
		"page_number": result.PageNumber,
		"page_size":   result.PageSize,
		"total_count": result.TotalCount,
		"total_pages": result.TotalPages(),
		"has_more":    result.HasMore(),
	})
}

func parseOrderFilter(c *gin.Context) (repository.OrderFilter, error) {
	filter := repository.OrderFilter{
		Search: c.Query("search"),
		UserID: c.Query("user_id"),
	}

	if raw := c.Query("status"); raw != "" {
		status := models.OrderStatus(raw)
		if !status.Valid() {
			return filter, apperrors.Validation("unknown order status: " + raw)
		}
		filter.Status = &status
	}
	if raw := c.Query("min_date"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, apperrors.Validation("min_date must be RFC3339")
		}
		filter.MinDate = &t
	}
	if raw := c.Query("max_date"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, apperrors.Validation("max_date must be RFC3339")
		}
		filter.MaxDate = &t
	}
	if raw := c.Query("min_amount"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, apperrors.Validation("min_amount must be an integer amount in cents")
		}
		filter.MinAmount = &v
	}
	if raw := c.Query("max_amount"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, apperrors.Validation("max_amount must be an integer amount in cents")
		}
		filter.MaxAmount = &v
	}
	if raw := c.Query("has_prescription"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, apperrors.Validation("has_prescription must be a boolean")
		}
		filter.HasPrescription = &v
	}
	return filter, nil
}
