package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/pharmadirect/pharmacy-backend/common/errors"
	"github.com/pharmadirect/pharmacy-backend/models"
	"github.com/pharmadirect/pharmacy-backend/services"
)

type PrescriptionController struct {
	Service services.PrescriptionService
	Logger  *zap.Logger
}

func NewPrescriptionController(service services.PrescriptionService, logger *zap.Logger) *PrescriptionController {
	return &PrescriptionController{Service: service, Logger: logger}
}

// Upload accepts a prescription file as multipart form data. An
// optional order_id form field links it to an existing order; without
// one the prescription is parked for the next checkout.
func (pc *PrescriptionController) Upload(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		apperrors.Respond(c, apperrors.Validation("no file was uploaded"))
		return
	}
	file, err := header.Open()
	if err != nil {
		apperrors.Respond(c, apperrors.Validation("could not read uploaded file"))
		return
	}
	defer file.Close()

	var p *models.Prescription
	if raw := c.PostForm("order_id"); raw != "" {
		orderID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}
		p, err = pc.Service.UploadForOrder(c.Request.Context(), uid, file, header.Filename, header.Size, orderID)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
	} else {
		p, err = pc.Service.UploadUnassigned(c.Request.Context(), uid, file, header.Filename, header.Size)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
	}
	c.JSON(http.StatusCreated, p)
}

// MyPrescriptions lists the caller's uploads, newest first.
func (pc *PrescriptionController) MyPrescriptions(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	out, err := pc.Service.GetUserPrescriptions(c.Request.Context(), uid)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// OrderPrescriptions lists every upload against one of the caller's
// orders.
func (pc *PrescriptionController) OrderPrescriptions(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	out, err := pc.Service.GetOrderPrescriptions(c.Request.Context(), uid, orderID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// LatestAvailable returns the caller's newest unassigned prescription
// that is still usable for a checkout, or a 404.
func (pc *PrescriptionController) LatestAvailable(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	p, err := pc.Service.LatestAvailablePrescription(c.Request.Context(), uid)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if p == nil {
		apperrors.Respond(c, apperrors.NotFound("no available prescription"))
		return
	}
	c.JSON(http.StatusOK, p)
}

// Download streams the stored prescription file.
func (pc *PrescriptionController) Download(c *gin.Context) {
	prescriptionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid prescription id"})
		return
	}

	rc, contentType, filename, err := pc.Service.Download(c.Request.Context(), prescriptionID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}

// PendingReview lists prescriptions waiting for a pharmacist decision,
// with their linked orders.
func (pc *PrescriptionController) PendingReview(c *gin.Context) {
	out, err := pc.Service.GetPendingReview(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// HasPending powers the review-queue badge.
func (pc *PrescriptionController) HasPending(c *gin.Context) {
	pending, err := pc.Service.HasPending(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"has_pending": pending})
}

// Verify records the pharmacist's approve/reject decision and advances
// the linked order accordingly.
func (pc *PrescriptionController) Verify(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	prescriptionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid prescription id"})
		return
	}

	var req struct {
		Decision models.PrescriptionStatus `json:"decision" binding:"required"`
		Comments string                    `json:"comments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	found, err := pc.Service.Verify(c.Request.Context(), prescriptionID, uid, req.Decision, req.Comments)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if !found {
		apperrors.Respond(c, apperrors.NotFound("prescription not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Decision})
}

// RequireInfo parks the prescription in MoreInfoRequired and notifies
// the customer what is missing.
func (pc *PrescriptionController) RequireInfo(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	prescriptionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid prescription id"})
		return
	}

	var req struct {
		Details string `json:"details" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	found, err := pc.Service.RequireMoreInfo(c.Request.Context(), prescriptionID, uid, req.Details)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if !found {
		apperrors.Respond(c, apperrors.NotFound("prescription not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.PrescriptionMoreInfoRequired})
}
