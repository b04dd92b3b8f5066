package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/rotc-portal/grading-api/internal/grading"
	"github.com/rotc-portal/grading-api/internal/models"
	"github.com/rotc-portal/grading-api/internal/service"
	"github.com/rotc-portal/grading-api/pkg/config"
)

type stubSummaryRepo struct {
	rows map[string]*models.GradeSummary
}

func (s *stubSummaryRepo) FindByCadet(_ context.Context, cadetID string) (*models.GradeSummary, error) {
	row, ok := s.rows[cadetID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *row
	return &clone, nil
}

func (s *stubSummaryRepo) SetScores(_ context.Context, cadetID string, prelim, midterm, final float64) error {
	row, ok := s.rows[cadetID]
	if !ok {
		row = &models.GradeSummary{CadetID: cadetID}
		s.rows[cadetID] = row
	}
	row.PrelimScore = prelim
	row.MidtermScore = midterm
	row.FinalScore = final
	return nil
}

func (s *stubSummaryRepo) ListDetails(_ context.Context) ([]models.GradeSummaryDetail, error) {
	return nil, nil
}

func (s *stubSummaryRepo) CadetIDs(_ context.Context) ([]string, error) {
	return nil, nil
}

type stubCadetRepo struct {
	ids map[string]bool
}

func (s *stubCadetRepo) FindByID(_ context.Context, id string) (*models.Cadet, error) {
	if !s.ids[id] {
		return nil, sql.ErrNoRows
	}
	return &models.Cadet{ID: id, Active: true}, nil
}

type stubRecounter struct{}

func (stubRecounter) Recompute(_ context.Context, _ string) (int, error) { return 0, nil }

func newGradeHandler(t *testing.T, rows map[string]*models.GradeSummary) *GradeHandler {
	t.Helper()
	policy, err := grading.PolicyFromConfig(config.GradingConfig{
		TotalTrainingDays: 15,
		AttendanceWeight:  30,
		AptitudeWeight:    30,
		SubjectWeight:     40,
		Transmutation:     "97:1.00:Passed;85:2.00:Passed;75:3.00:Passed;0:5.00:Failed",
	})
	require.NoError(t, err)
	svc := service.NewGradeService(
		&stubSummaryRepo{rows: rows},
		&stubCadetRepo{ids: map[string]bool{"c-1": true}},
		stubRecounter{},
		nil, nil, policy, 0, nil, nil,
	)
	return NewGradeHandler(svc)
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestGradeHandlerCadetGrades(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newGradeHandler(t, map[string]*models.GradeSummary{
		"c-1": {CadetID: "c-1", AttendancePresent: 15, PrelimScore: 100, MidtermScore: 100, FinalScore: 100},
	})

	c, w := newGinContext(http.MethodGet, "/cadets/c-1/grades", nil)
	c.Params = gin.Params{{Key: "id", Value: "c-1"}}

	handler.CadetGrades(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"transmutedGrade":"1.00"`)
}

func TestGradeHandlerCadetGradesNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newGradeHandler(t, map[string]*models.GradeSummary{})

	c, w := newGinContext(http.MethodGet, "/cadets/c-404/grades", nil)
	c.Params = gin.Params{{Key: "id", Value: "c-404"}}

	handler.CadetGrades(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGradeHandlerUpdateScoresRejectsOutOfRange(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newGradeHandler(t, map[string]*models.GradeSummary{})

	payload, _ := json.Marshal(service.UpdateScoresRequest{PrelimScore: 140, MidtermScore: 80, FinalScore: 80})
	c, w := newGinContext(http.MethodPut, "/cadets/c-1/scores", payload)
	c.Params = gin.Params{{Key: "id", Value: "c-1"}}

	handler.UpdateScores(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGradeHandlerPolicyExposesWeights(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newGradeHandler(t, map[string]*models.GradeSummary{})

	c, w := newGinContext(http.MethodGet, "/grades/policy", nil)

	handler.Policy(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"total_training_days":15`)
}
