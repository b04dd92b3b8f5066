package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rotc-portal/grading-api/internal/service"
	appErrors "github.com/rotc-portal/grading-api/pkg/errors"
	"github.com/rotc-portal/grading-api/pkg/response"
)

// GradeHandler exposes grade computation endpoints.
type GradeHandler struct {
	grades *service.GradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades *service.GradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// CadetGrades godoc
// @Summary Full grade breakdown for a cadet
// @Tags Grades
// @Produce json
// @Param id path string true "Cadet ID"
// @Success 200 {object} response.Envelope
// @Router /cadets/{id}/grades [get]
func (h *GradeHandler) CadetGrades(c *gin.Context) {
	result, err := h.grades.CadetGrades(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// UpdateScores godoc
// @Summary Store a cadet's subject exam scores
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Cadet ID"
// @Param payload body service.UpdateScoresRequest true "Scores payload"
// @Success 200 {object} response.Envelope
// @Router /cadets/{id}/scores [put]
func (h *GradeHandler) UpdateScores(c *gin.Context) {
	var req service.UpdateScoresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.grades.UpdateScores(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// GradeSheet godoc
// @Summary Roster-wide grade sheet
// @Tags Grades
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grades/sheet [get]
func (h *GradeHandler) GradeSheet(c *gin.Context) {
	rows, err := h.grades.GradeSheet(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// RecalculateAll godoc
// @Summary Re-reconcile attendance counts and drop cached grades for all cadets
// @Tags Grades
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grades/recalculate [post]
func (h *GradeHandler) RecalculateAll(c *gin.Context) {
	processed, err := h.grades.RecalculateAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"processed": processed}, nil)
}

// Policy godoc
// @Summary Active grading policy
// @Tags Grades
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grades/policy [get]
func (h *GradeHandler) Policy(c *gin.Context) {
	policy := h.grades.Policy()
	response.JSON(c, http.StatusOK, gin.H{
		"total_training_days": policy.TotalTrainingDays,
		"attendance_weight":   policy.AttendanceWeight,
		"aptitude_weight":     policy.AptitudeWeight,
		"subject_weight":      policy.SubjectWeight,
		"subject_split":       policy.Split,
		"transmutation":       policy.Table,
	}, nil)
}
