package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/pharmadirect/pharmacy-backend/common/errors"
	"github.com/pharmadirect/pharmacy-backend/services"
)

// userID pulls the caller identity set by the upstream gateway.
func userID(c *gin.Context) (string, bool) {
	id := c.GetHeader("X-User-ID")
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return id, true
}

type CartController struct {
	Service services.CartService
	Logger  *zap.Logger
}

func NewCartController(service services.CartService, logger *zap.Logger) *CartController {
	return &CartController{Service: service, Logger: logger}
}

// GetCart returns the current cart with its live total and item count.
func (cc *CartController) GetCart(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	cart, err := cc.Service.GetOrCreateCart(c.Request.Context(), uid)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	total, err := cc.Service.Total(c.Request.Context(), uid)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cart":       cart,
		"total":      total,
		"item_count": cart.ItemCount(),
	})
}

type cartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required"`
}

// AddItem adds or merges an item into the cart.
func (cc *CartController) AddItem(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	item, err := cc.Service.AddItem(c.Request.Context(), uid, req.ProductID, req.Quantity)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// UpdateItem overwrites a line's quantity; zero or less removes it.
func (cc *CartController) UpdateItem(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	item, err := cc.Service.UpdateItem(c.Request.Context(), uid, productID, req.Quantity)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if item == nil {
		c.JSON(http.StatusOK, gin.H{"removed": true})
		return
	}
	c.JSON(http.StatusOK, item)
}

// RemoveItem deletes a line; absence is not an error.
func (cc *CartController) RemoveItem(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	if err := cc.Service.RemoveItem(c.Request.Context(), uid, productID); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item removed"})
}

// ClearCart removes all items from the cart.
func (cc *CartController) ClearCart(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	if err := cc.Service.Clear(c.Request.Context(), uid); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
}
