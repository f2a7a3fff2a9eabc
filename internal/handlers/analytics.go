// internal/handlers/analytics.go
package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fabhub/fabhub-backend/internal/services"
	"github.com/fabhub/fabhub-backend/internal/utils"
)

type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
	}
}

// GET /sellers/me/dashboard
func (h *AnalyticsHandler) GetSellerDashboard(c *gin.Context) {
	sellerID, ok := currentUserID(c)
	if !ok {
		return
	}

	// Default window: last 30 days
	to := time.Now()
	from := to.AddDate(0, 0, -30)

	if fromStr := c.Query("from"); fromStr != "" {
		if parsed, err := time.Parse("2006-01-02", fromStr); err == nil {
			from = parsed
		}
	}
	if toStr := c.Query("to"); toStr != "" {
		if parsed, err := time.Parse("2006-01-02", toStr); err == nil {
			to = parsed.AddDate(0, 0, 1) // inclusive end date
		}
	}

	dashboard, err := h.analyticsService.GetSellerDashboard(sellerID, from, to)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"dashboard": dashboard})
}

// GET /admin/analytics/overview
func (h *AnalyticsHandler) GetPlatformOverview(c *gin.Context) {
	overview, err := h.analyticsService.GetPlatformOverview()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"overview": overview})
}

// GET /admin/analytics/metrics/:name
func (h *AnalyticsHandler) GetMetricHistory(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		utils.BadRequestResponse(c, "Metric name required", nil)
		return
	}

	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	history, err := h.analyticsService.GetMetricHistory(name, days)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"metrics": history})
}
