package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rotc-portal/grading-api/internal/models"
	"github.com/rotc-portal/grading-api/internal/service"
	appErrors "github.com/rotc-portal/grading-api/pkg/errors"
	"github.com/rotc-portal/grading-api/pkg/response"
)

// ConductHandler exposes merit/demerit endpoints.
type ConductHandler struct {
	conduct *service.ConductService
}

// NewConductHandler constructs ConductHandler.
func NewConductHandler(conduct *service.ConductService) *ConductHandler {
	return &ConductHandler{conduct: conduct}
}

// List godoc
// @Summary List conduct entries
// @Tags Conduct
// @Produce json
// @Param cadetId query string false "Filter by cadet"
// @Param type query string false "merit or demerit"
// @Param from query string false "Date from"
// @Param to query string false "Date to"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /conduct [get]
func (h *ConductHandler) List(c *gin.Context) {
	var filter models.ConductFilter
	filter.CadetID = c.Query("cadetId")
	if t := c.Query("type"); t != "" {
		entryType := models.ConductEntryType(t)
		filter.EntryType = &entryType
	}
	filter.DateFrom = parseTimeQuery(c, "from")
	filter.DateTo = parseTimeQuery(c, "to")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	entries, total, err := h.conduct.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total})
}

// Create godoc
// @Summary Record a merit or demerit
// @Tags Conduct
// @Accept json
// @Produce json
// @Param payload body service.CreateConductRequest true "Conduct payload"
// @Success 201 {object} response.Envelope
// @Router /conduct [post]
func (h *ConductHandler) Create(c *gin.Context) {
	var req service.CreateConductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.CreatedBy = claims.UserID
	}
	entry, err := h.conduct.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Summary godoc
// @Summary Conduct point totals for a cadet
// @Tags Conduct
// @Produce json
// @Param id path string true "Cadet ID"
// @Success 200 {object} response.Envelope
// @Router /cadets/{id}/conduct [get]
func (h *ConductHandler) Summary(c *gin.Context) {
	summary, err := h.conduct.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
