package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/pharmadirect/pharmacy-backend/common/errors"
	"github.com/pharmadirect/pharmacy-backend/services"
)

type DashboardController struct {
	Service services.DashboardService
	Logger  *zap.Logger
}

func NewDashboardController(service services.DashboardService, logger *zap.Logger) *DashboardController {
	return &DashboardController{Service: service, Logger: logger}
}

// GetDashboard returns the admin overview. Optional start_date and
// end_date query params (RFC3339) bound the reporting range; omitted
// they default to the trailing 30 days.
func (dc *DashboardController) GetDashboard(c *gin.Context) {
	var from, to time.Time

	if raw := c.Query("start_date"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			apperrors.Respond(c, apperrors.Validation("start_date must be RFC3339"))
			return
		}
		from = t
	}
	if raw := c.Query("end_date"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			apperrors.Respond(c, apperrors.Validation("end_date must be RFC3339"))
			return
		}
		to = t
	}

	dashboard, err := dc.Service.GetDashboard(c.Request.Context(), from, to)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}
