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

// AttendanceHandler exposes attendance endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param cadetId query string false "Filter by cadet"
// @Param trainingDayId query string false "Filter by training day"
// @Param status query string false "Filter by status"
// @Param from query string false "Date from"
// @Param to query string false "Date to"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	var filter models.AttendanceFilter
	filter.CadetID = c.Query("cadetId")
	filter.TrainingDayID = c.Query("trainingDayId")
	if status := c.Query("status"); status != "" {
		s := models.AttendanceStatus(status)
		filter.Status = &s
	}
	filter.DateFrom = parseTimeQuery(c, "from")
	filter.DateTo = parseTimeQuery(c, "to")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	rows, total, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total})
}

// Mark godoc
// @Summary Mark attendance for one cadet
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.MarkAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.attendance.Mark(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// BulkMark godoc
// @Summary Mark attendance for many cadets on one training day
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.BulkAttendanceRequest true "Bulk attendance payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/bulk [post]
func (h *AttendanceHandler) BulkMark(c *gin.Context) {
	var req service.BulkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.attendance.BulkMark(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// History godoc
// @Summary Attendance history for a cadet
// @Tags Attendance
// @Produce json
// @Param id path string true "Cadet ID"
// @Param from query string false "Date from"
// @Param to query string false "Date to"
// @Success 200 {object} response.Envelope
// @Router /cadets/{id}/attendance [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	rows, err := h.attendance.History(c.Request.Context(), c.Param("id"), parseTimeQuery(c, "from"), parseTimeQuery(c, "to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Recompute godoc
// @Summary Reconcile a cadet's attendance count from raw records
// @Tags Attendance
// @Produce json
// @Param id path string true "Cadet ID"
// @Success 200 {object} response.Envelope
// @Router /cadets/{id}/attendance/recompute [post]
func (h *AttendanceHandler) Recompute(c *gin.Context) {
	count, err := h.attendance.Recompute(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"cadet_id": c.Param("id"), "attendance_present": count}, nil)
}

// Audit godoc
// @Summary Report cadets whose stored attendance count drifted
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/audit [get]
func (h *AttendanceHandler) Audit(c *gin.Context) {
	mismatches, err := h.attendance.AuditConsistency(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mismatches, nil, map[string]interface{}{"mismatch_count": len(mismatches)})
}
