package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seiwa-mfg/training-compliance-api/internal/middleware"
	"github.com/seiwa-mfg/training-compliance-api/internal/service"
	appErrors "github.com/seiwa-mfg/training-compliance-api/pkg/errors"
	"github.com/seiwa-mfg/training-compliance-api/pkg/response"
)

// DashboardHandler exposes the landing-page summary endpoint.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Summary godoc
// @Summary Site-wide compliance summary grouped by department
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	if !h.dashboard.Enabled() {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "dashboard is disabled"))
		return
	}
	summary, err := h.dashboard.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, summary.FromCache)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}
