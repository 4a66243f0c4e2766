package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seiwa-mfg/training-compliance-api/internal/models"
	"github.com/seiwa-mfg/training-compliance-api/internal/service"
	appErrors "github.com/seiwa-mfg/training-compliance-api/pkg/errors"
	"github.com/seiwa-mfg/training-compliance-api/pkg/response"
)

// ResultHandler exposes the training result ledger endpoints.
type ResultHandler struct {
	results *service.ResultService
}

// NewResultHandler constructs handler.
func NewResultHandler(results *service.ResultService) *ResultHandler {
	return &ResultHandler{results: results}
}

// List godoc
// @Summary List ledger results
// @Tags Results
// @Produce json
// @Param employeeId query string false "Filter by employee"
// @Param programCode query string false "Filter by program"
// @Param from query string false "Training date lower bound (YYYY-MM-DD)"
// @Param to query string false "Training date upper bound (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /results [get]
func (h *ResultHandler) List(c *gin.Context) {
	filter := models.ResultFilter{
		EmployeeID:  c.Query("employeeId"),
		ProgramCode: c.Query("programCode"),
		Page:        queryInt(c, "page", 1),
		PageSize:    queryInt(c, "pageSize", 50),
	}
	var err error
	if filter.From, err = queryDate(c, "from"); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "malformed from date"))
		return
	}
	if filter.To, err = queryDate(c, "to"); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "malformed to date"))
		return
	}

	results, total, err := h.results.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, results, pagination)
}

// Get godoc
// @Summary Get a ledger result
// @Tags Results
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /results/{id} [get]
func (h *ResultHandler) Get(c *gin.Context) {
	result, err := h.results.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// EditTrail godoc
// @Summary List amendments for a ledger result
// @Tags Results
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /results/{id}/edits [get]
func (h *ResultHandler) EditTrail(c *gin.Context) {
	entries, err := h.results.EditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Record godoc
// @Summary Record a batch of training results
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body service.RecordResultsRequest true "Session batch"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /results [post]
func (h *ResultHandler) Record(c *gin.Context) {
	var req service.RecordResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	results, err := h.results.RecordResults(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, results)
}

// Amend godoc
// @Summary Amend a ledger result with an audit reason
// @Tags Results
// @Accept json
// @Produce json
// @Param id path string true "Result ID"
// @Param payload body service.AmendResultRequest true "Amendment payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /results/{id} [patch]
func (h *ResultHandler) Amend(c *gin.Context) {
	var req service.AmendResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.EditedBy = claims.UserID
	}
	result, err := h.results.AmendResult(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func queryDate(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
