package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rotc-portal/grading-api/internal/grading"
	"github.com/rotc-portal/grading-api/internal/models"
	appErrors "github.com/rotc-portal/grading-api/pkg/errors"
)

type gradeSummaryRepo interface {
	FindByCadet(ctx context.Context, cadetID string) (*models.GradeSummary, error)
	SetScores(ctx context.Context, cadetID string, prelim, midterm, final float64) error
	ListDetails(ctx context.Context) ([]models.GradeSummaryDetail, error)
	CadetIDs(ctx context.Context) ([]string, error)
}

type attendanceRecounter interface {
	Recompute(ctx context.Context, cadetID string) (int, error)
}

type gradeCache interface {
	Enabled() bool
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type cacheObserver interface {
	RecordCacheOperation(hit bool, duration time.Duration)
}

// UpdateScoresRequest carries the three subject exam scores on the 0-100 scale.
type UpdateScoresRequest struct {
	PrelimScore  float64 `json:"prelim_score" validate:"gte=0,lte=100"`
	MidtermScore float64 `json:"midterm_score" validate:"gte=0,lte=100"`
	FinalScore   float64 `json:"final_score" validate:"gte=0,lte=100"`
}

// GradeService computes cadet grades from stored raw inputs and the policy
// loaded at startup. Derived scores are never persisted.
type GradeService struct {
	summaries  gradeSummaryRepo
	cadets     cadetReader
	attendance attendanceRecounter
	cache      gradeCache
	metrics    cacheObserver
	policy     grading.Policy
	cacheTTL   time.Duration
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(summaries gradeSummaryRepo, cadets cadetReader, attendance attendanceRecounter, cache gradeCache, metrics cacheObserver, policy grading.Policy, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &GradeService{
		summaries:  summaries,
		cadets:     cadets,
		attendance: attendance,
		cache:      cache,
		metrics:    metrics,
		policy:     policy,
		cacheTTL:   cacheTTL,
		validator:  validate,
		logger:     logger,
	}
}

// Policy exposes the active grading policy.
func (s *GradeService) Policy() grading.Policy {
	return s.policy
}

// CadetGrades returns the full computed grade breakdown for one cadet. A cadet
// with no recorded data still gets a complete result with floor sub-scores.
func (s *GradeService) CadetGrades(ctx context.Context, cadetID string) (*models.GradeResult, error) {
	if s.cache != nil && s.cache.Enabled() {
		start := time.Now()
		var cached models.GradeResult
		err := s.cache.GetJSON(ctx, gradeCacheKey(cadetID), &cached)
		if err == nil {
			s.observeCache(true, time.Since(start))
			return &cached, nil
		}
		s.observeCache(false, time.Since(start))
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("grade cache read failed", zap.String("cadet_id", cadetID), zap.Error(err))
		}
	}

	if _, err := s.cadets.FindByID(ctx, cadetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cadet not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load cadet")
	}

	summary, err := s.summaries.FindByCadet(ctx, cadetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			summary = &models.GradeSummary{CadetID: cadetID}
		} else {
			return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load grade summary")
		}
	}

	result := grading.Compute(*summary, s.policy)

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.SetJSON(ctx, gradeCacheKey(cadetID), result, s.cacheTTL); err != nil {
			s.logger.Warn("grade cache write failed", zap.String("cadet_id", cadetID), zap.Error(err))
		}
	}
	return &result, nil
}

// UpdateScores stores a cadet's exam scores and returns the recomputed result.
func (s *GradeService) UpdateScores(ctx context.Context, cadetID string, req UpdateScoresRequest) (*models.GradeResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "scores must be between 0 and 100")
	}
	if _, err := s.cadets.FindByID(ctx, cadetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cadet not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load cadet")
	}
	if err := s.summaries.SetScores(ctx, cadetID, req.PrelimScore, req.MidtermScore, req.FinalScore); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store scores")
	}
	s.invalidate(ctx, cadetID)
	return s.CadetGrades(ctx, cadetID)
}

// GradeSheet computes the roster-wide sheet for all active cadets.
func (s *GradeService) GradeSheet(ctx context.Context) ([]models.GradeSheetRow, error) {
	details, err := s.summaries.ListDetails(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load grade summaries")
	}
	rows := make([]models.GradeSheetRow, 0, len(details))
	for _, detail := range details {
		rows = append(rows, models.GradeSheetRow{
			CadetID:       detail.CadetID,
			StudentNumber: detail.StudentNumber,
			CadetName:     detail.CadetName,
			Unit:          detail.Unit,
			Result:        grading.Compute(detail.GradeSummary, s.policy),
		})
	}
	return rows, nil
}

// RecalculateAll re-reconciles the attendance count for every active cadet
// and drops all cached results. Returns the number of cadets processed.
func (s *GradeService) RecalculateAll(ctx context.Context) (int, error) {
	ids, err := s.summaries.CadetIDs(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list cadets")
	}
	for _, id := range ids {
		if _, err := s.attendance.Recompute(ctx, id); err != nil {
			return 0, err
		}
		s.invalidate(ctx, id)
	}
	s.logger.Info("recalculated all cadet grades", zap.Int("cadets", len(ids)))
	return len(ids), nil
}

func (s *GradeService) invalidate(ctx context.Context, cadetID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, gradeCacheKey(cadetID)); err != nil {
		s.logger.Warn("failed to invalidate grade cache", zap.String("cadet_id", cadetID), zap.Error(err))
	}
}

func (s *GradeService) observeCache(hit bool, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCacheOperation(hit, duration)
}

func gradeCacheKey(cadetID string) string {
	return "grades:cadet:" + cadetID
}
