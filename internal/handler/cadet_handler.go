package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rotc-portal/grading-api/internal/models"
	"github.com/rotc-portal/grading-api/internal/service"
	appErrors "github.com/rotc-portal/grading-api/pkg/errors"
	"github.com/rotc-portal/grading-api/pkg/response"
)

// CadetHandler exposes roster endpoints.
type CadetHandler struct {
	cadets *service.CadetService
}

// NewCadetHandler constructs CadetHandler.
func NewCadetHandler(cadets *service.CadetService) *CadetHandler {
	return &CadetHandler{cadets: cadets}
}

// List godoc
// @Summary List cadets
// @Tags Cadets
// @Produce json
// @Param search query string false "Search by name or student number"
// @Param unit query string false "Filter by unit"
// @Param active query bool false "Filter by active state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /cadets [get]
func (h *CadetHandler) List(c *gin.Context) {
	var filter models.CadetFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Unit = c.Query("unit")
	if active := c.Query("active"); active != "" {
		if v, err := strconv.ParseBool(active); err == nil {
			filter.Active = &v
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	cadets, total, err := h.cadets.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cadets, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total})
}

// Get godoc
// @Summary Get cadet detail
// @Tags Cadets
// @Produce json
// @Param id path string true "Cadet ID"
// @Success 200 {object} response.Envelope
// @Router /cadets/{id} [get]
func (h *CadetHandler) Get(c *gin.Context) {
	cadet, err := h.cadets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cadet, nil)
}

// Create godoc
// @Summary Enroll cadet
// @Tags Cadets
// @Accept json
// @Produce json
// @Param payload body service.CreateCadetRequest true "Cadet payload"
// @Success 201 {object} response.Envelope
// @Router /cadets [post]
func (h *CadetHandler) Create(c *gin.Context) {
	var req service.CreateCadetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cadet, err := h.cadets.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cadet)
}

// Update godoc
// @Summary Update cadet
// @Tags Cadets
// @Accept json
// @Produce json
// @Param id path string true "Cadet ID"
// @Param payload body service.UpdateCadetRequest true "Cadet payload"
// @Success 200 {object} response.Envelope
// @Router /cadets/{id} [put]
func (h *CadetHandler) Update(c *gin.Context) {
	var req service.UpdateCadetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cadet, err := h.cadets.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cadet, nil)
}

// Archive godoc
// @Summary Archive cadet
// @Tags Cadets
// @Produce json
// @Param id path string true "Cadet ID"
// @Success 204
// @Router /cadets/{id} [delete]
func (h *CadetHandler) Archive(c *gin.Context) {
	if err := h.cadets.Archive(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
