package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rotc-portal/grading-api/internal/models"
	"github.com/rotc-portal/grading-api/internal/service"
	appErrors "github.com/rotc-portal/grading-api/pkg/errors"
	"github.com/rotc-portal/grading-api/pkg/response"
)

// TrainingDayHandler exposes training schedule endpoints.
type TrainingDayHandler struct {
	days *service.TrainingDayService
}

// NewTrainingDayHandler constructs TrainingDayHandler.
func NewTrainingDayHandler(days *service.TrainingDayService) *TrainingDayHandler {
	return &TrainingDayHandler{days: days}
}

// List godoc
// @Summary List training days
// @Tags TrainingDays
// @Produce json
// @Param from query string false "Date from (RFC3339)"
// @Param to query string false "Date to (RFC3339)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /training-days [get]
func (h *TrainingDayHandler) List(c *gin.Context) {
	var filter models.TrainingDayFilter
	filter.DateFrom = parseTimeQuery(c, "from")
	filter.DateTo = parseTimeQuery(c, "to")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	days, total, err := h.days.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, days, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total})
}

// Get godoc
// @Summary Get training day
// @Tags TrainingDays
// @Produce json
// @Param id path string true "Training day ID"
// @Success 200 {object} response.Envelope
// @Router /training-days/{id} [get]
func (h *TrainingDayHandler) Get(c *gin.Context) {
	day, err := h.days.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, day, nil)
}

// Create godoc
// @Summary Schedule training day
// @Tags TrainingDays
// @Accept json
// @Produce json
// @Param payload body service.TrainingDayRequest true "Training day payload"
// @Success 201 {object} response.Envelope
// @Router /training-days [post]
func (h *TrainingDayHandler) Create(c *gin.Context) {
	var req service.TrainingDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	day, err := h.days.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, day)
}

// Update godoc
// @Summary Update training day
// @Tags TrainingDays
// @Accept json
// @Produce json
// @Param id path string true "Training day ID"
// @Param payload body service.TrainingDayRequest true "Training day payload"
// @Success 200 {object} response.Envelope
// @Router /training-days/{id} [put]
func (h *TrainingDayHandler) Update(c *gin.Context) {
	var req service.TrainingDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	day, err := h.days.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, day, nil)
}

// Delete godoc
// @Summary Delete training day
// @Tags TrainingDays
// @Produce json
// @Param id path string true "Training day ID"
// @Success 204
// @Router /training-days/{id} [delete]
func (h *TrainingDayHandler) Delete(c *gin.Context) {
	if err := h.days.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func parseTimeQuery(c *gin.Context, key string) *time.Time {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t
	}
	return nil
}
