package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seiwa-mfg/training-compliance-api/internal/middleware"
	"github.com/seiwa-mfg/training-compliance-api/internal/service"
	"github.com/seiwa-mfg/training-compliance-api/pkg/response"
)

// ComplianceHandler exposes the compliance matrix and worklist endpoints.
type ComplianceHandler struct {
	compliance *service.ComplianceService
}

// NewComplianceHandler constructs handler.
func NewComplianceHandler(compliance *service.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{compliance: compliance}
}

// Matrix godoc
// @Summary Compliance matrix
// @Tags Compliance
// @Produce json
// @Param department query string false "Filter employees by department"
// @Param building query string false "Filter employees by building"
// @Param line query string false "Filter employees by line"
// @Param category query string false "Filter programs by category"
// @Param includeInactive query bool false "Include inactive employees and programs"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /compliance/matrix [get]
func (h *ComplianceHandler) Matrix(c *gin.Context) {
	req := service.MatrixRequest{
		Department: c.Query("department"),
		Building:   c.Query("building"),
		Line:       c.Query("line"),
		Category:   c.Query("category"),
	}
	if include := queryBool(c, "includeInactive"); include != nil {
		req.IncludeInactive = *include
	}
	matrix, err := h.compliance.Matrix(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, matrix.FromCache)
	response.JSON(c, http.StatusOK, matrix, nil, middleware.ExtractMeta(c))
}

// Retraining godoc
// @Summary Retraining worklist
// @Tags Compliance
// @Produce json
// @Param department query string false "Filter by department"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /compliance/retraining [get]
func (h *ComplianceHandler) Retraining(c *gin.Context) {
	req := service.RetrainingRequest{Department: c.Query("department")}
	worklist, err := h.compliance.Retraining(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, worklist.FromCache)
	response.JSON(c, http.StatusOK, worklist, nil, middleware.ExtractMeta(c))
}

// Expiring godoc
// @Summary Expiring training worklist
// @Tags Compliance
// @Produce json
// @Param department query string false "Filter by department"
// @Param horizonDays query int false "Warning horizon in days"
// @Param includeExpired query bool false "Include already-expired trainings"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /compliance/expiring [get]
func (h *ComplianceHandler) Expiring(c *gin.Context) {
	req := service.ExpiringRequest{Department: c.Query("department")}
	if horizon := c.Query("horizonDays"); horizon != "" {
		days := queryInt(c, "horizonDays", -1)
		if days >= 0 {
			req.HorizonDays = &days
		}
	}
	req.IncludeExpired = queryBool(c, "includeExpired")

	worklist, err := h.compliance.Expiring(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, worklist.FromCache)
	response.JSON(c, http.StatusOK, worklist, nil, middleware.ExtractMeta(c))
}
