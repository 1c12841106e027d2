package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/pharmadirect/pharmacy-backend/common/errors"
	"github.com/pharmadirect/pharmacy-backend/models"
	"github.com/pharmadirect/pharmacy-backend/repository"
)

type AddressController struct {
	Addresses repository.AddressRepository
	Logger    *zap.Logger
}

func NewAddressController(addresses repository.AddressRepository, logger *zap.Logger) *AddressController {
	return &AddressController{Addresses: addresses, Logger: logger}
}

// GetAddresses lists the caller's address book, default first.
func (ac *AddressController) GetAddresses(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	out, err := ac.Addresses.FindByUser(c.Request.Context(), uid)
	if err != nil {
		apperrors.Respond(c, apperrors.Persistence(err))
		return
	}
	c.JSON(http.StatusOK, out)
}

// CreateAddress adds a shipping destination to the caller's book.
func (ac *AddressController) CreateAddress(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req struct {
		Line1  string `json:"line1" binding:"required"`
		City   string `json:"city" binding:"required"`
		Region string `json:"region" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	address := &models.Address{
		UserID: uid,
		Line1:  req.Line1,
		City:   req.City,
		Region: req.Region,
	}
	if err := ac.Addresses.Create(c.Request.Context(), address); err != nil {
		apperrors.Respond(c, apperrors.Persistence(err))
		return
	}
	c.JSON(http.StatusCreated, address)
}

// SetDefault marks one address as the checkout default.
func (ac *AddressController) SetDefault(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address id"})
		return
	}

	changed, err := ac.Addresses.SetDefault(c.Request.Context(), id, uid)
	if err != nil {
		apperrors.Respond(c, apperrors.Persistence(err))
		return
	}
	if !changed {
		apperrors.Respond(c, apperrors.NotFound("address not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_default": true})
}
