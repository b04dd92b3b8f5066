package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rotc-portal/grading-api/internal/models"
	appErrors "github.com/rotc-portal/grading-api/pkg/errors"
)

type attendanceRepo interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error)
	Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	BulkInsert(ctx context.Context, records []models.AttendanceRecord, atomic bool) ([]models.AttendanceRecord, error)
	CountQualifying(ctx context.Context, cadetID string) (int, error)
	ConsistencyRows(ctx context.Context) ([]models.AttendanceMismatch, error)
	HistoryByCadet(ctx context.Context, cadetID string, from, to *time.Time) ([]models.AttendanceRecordDetail, error)
}

type cadetReader interface {
	FindByID(ctx context.Context, id string) (*models.Cadet, error)
}

type trainingDayReader interface {
	FindByID(ctx context.Context, id string) (*models.TrainingDay, error)
}

type attendanceSummaryWriter interface {
	SetAttendancePresent(ctx context.Context, cadetID string, count int) error
}

type gradeCacheInvalidator interface {
	Delete(ctx context.Context, keys ...string) error
}

type attendanceObserver interface {
	RecordRecompute()
	RecordAuditMismatches(count int)
}

// MarkAttendanceRequest records one cadet's status on one training day.
type MarkAttendanceRequest struct {
	CadetID       string  `json:"cadet_id" validate:"required"`
	TrainingDayID string  `json:"training_day_id" validate:"required"`
	Status        string  `json:"status" validate:"required"`
	Remarks       *string `json:"remarks"`
}

// BulkAttendanceEntry is one row of a roster-wide marking payload.
type BulkAttendanceEntry struct {
	CadetID string  `json:"cadet_id" validate:"required"`
	Status  string  `json:"status" validate:"required"`
	Remarks *string `json:"remarks"`
}

// BulkAttendanceRequest marks many cadets for a single training day.
type BulkAttendanceRequest struct {
	TrainingDayID string                `json:"training_day_id" validate:"required"`
	Mode          string                `json:"mode" validate:"omitempty,oneof=atomic partialOnError"`
	Entries       []BulkAttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// BulkAttendanceResult summarises a bulk marking outcome.
type BulkAttendanceResult struct {
	SuccessCount int                             `json:"success_count"`
	Conflicts    []models.AttendanceBulkConflict `json:"conflicts,omitempty"`
}

// AttendanceService orchestrates attendance marking and the reconciliation of
// the derived summary count.
type AttendanceService struct {
	records   attendanceRepo
	cadets    cadetReader
	days      trainingDayReader
	summaries attendanceSummaryWriter
	cache     gradeCacheInvalidator
	metrics   attendanceObserver
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(records attendanceRepo, cadets cadetReader, days trainingDayReader, summaries attendanceSummaryWriter, cache gradeCacheInvalidator, metrics attendanceObserver, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		records:   records,
		cadets:    cadets,
		days:      days,
		summaries: summaries,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// List returns attendance rows per filter.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error) {
	rows, total, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list attendance")
	}
	return rows, total, nil
}

// History returns a cadet's attendance history, newest first.
func (s *AttendanceService) History(ctx context.Context, cadetID string, from, to *time.Time) ([]models.AttendanceRecordDetail, error) {
	if _, err := s.cadets.FindByID(ctx, cadetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cadet not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load cadet")
	}
	rows, err := s.records.HistoryByCadet(ctx, cadetID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load attendance history")
	}
	return rows, nil
}

// Mark records or overwrites a single cadet's status for a training day and
// reconciles the cadet's summary count from raw records.
func (s *AttendanceService) Mark(ctx context.Context, req MarkAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	status := models.AttendanceStatus(req.Status).Normalize()
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown attendance status %q", req.Status))
	}
	if _, err := s.cadets.FindByID(ctx, req.CadetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cadet not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load cadet")
	}
	if _, err := s.days.FindByID(ctx, req.TrainingDayID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training day not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load training day")
	}

	record := &models.AttendanceRecord{
		CadetID:       req.CadetID,
		TrainingDayID: req.TrainingDayID,
		Status:        status,
		Remarks:       req.Remarks,
	}
	stored, err := s.records.Upsert(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to save attendance record")
	}

	if _, err := s.Recompute(ctx, req.CadetID); err != nil {
		return nil, err
	}
	return stored, nil
}

// BulkMark records attendance for many cadets on one training day. In atomic
// mode any conflict aborts the whole batch; in partial mode conflicts are
// collected and the rest is committed.
func (s *AttendanceService) BulkMark(ctx context.Context, req BulkAttendanceRequest) (*BulkAttendanceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk attendance payload")
	}
	if _, err := s.days.FindByID(ctx, req.TrainingDayID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training day not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load training day")
	}

	records := make([]models.AttendanceRecord, 0, len(req.Entries))
	seen := make(map[string]bool, len(req.Entries))
	for _, entry := range req.Entries {
		status := models.AttendanceStatus(entry.Status).Normalize()
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown attendance status %q for cadet %s", entry.Status, entry.CadetID))
		}
		if seen[entry.CadetID] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate cadet %s in payload", entry.CadetID))
		}
		seen[entry.CadetID] = true
		if _, err := s.cadets.FindByID(ctx, entry.CadetID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("cadet %s not found", entry.CadetID))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load cadet")
		}
		records = append(records, models.AttendanceRecord{
			CadetID:       entry.CadetID,
			TrainingDayID: req.TrainingDayID,
			Status:        status,
			Remarks:       entry.Remarks,
		})
	}

	atomic := req.Mode == "" || req.Mode == string(models.BulkModeAtomic)
	conflicted, err := s.records.BulkInsert(ctx, records, atomic)
	if err != nil {
		if atomic {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "bulk attendance aborted")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to save bulk attendance")
	}

	result := &BulkAttendanceResult{SuccessCount: len(records) - len(conflicted)}
	for _, rec := range conflicted {
		result.Conflicts = append(result.Conflicts, models.AttendanceBulkConflict{
			CadetID: rec.CadetID,
			Reason:  "record already exists for this training day",
		})
	}

	for _, rec := range records {
		if _, err := s.Recompute(ctx, rec.CadetID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Recompute reconciles a cadet's summary attendance count by recounting
// qualifying raw records and overwriting the stored value. Running it twice
// in a row yields the same count.
func (s *AttendanceService) Recompute(ctx context.Context, cadetID string) (int, error) {
	if _, err := s.cadets.FindByID(ctx, cadetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "cadet not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load cadet")
	}
	count, err := s.records.CountQualifying(ctx, cadetID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to count attendance")
	}
	if err := s.summaries.SetAttendancePresent(ctx, cadetID, count); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store attendance count")
	}
	s.invalidateGrades(ctx, cadetID)
	if s.metrics != nil {
		s.metrics.RecordRecompute()
	}
	return count, nil
}

// AuditConsistency compares stored summary counts with fresh counts and
// returns only the drifted cadets. It never writes.
func (s *AttendanceService) AuditConsistency(ctx context.Context) ([]models.AttendanceMismatch, error) {
	rows, err := s.records.ConsistencyRows(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to audit attendance")
	}
	mismatches := make([]models.AttendanceMismatch, 0)
	for _, row := range rows {
		if row.StoredCount != row.ActualCount {
			mismatches = append(mismatches, row)
		}
	}
	if len(mismatches) > 0 {
		s.logger.Warn("attendance summary drift detected", zap.Int("cadets", len(mismatches)))
	}
	if s.metrics != nil {
		s.metrics.RecordAuditMismatches(len(mismatches))
	}
	return mismatches, nil
}

func (s *AttendanceService) invalidateGrades(ctx context.Context, cadetID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, gradeCacheKey(cadetID)); err != nil {
		s.logger.Warn("failed to invalidate grade cache", zap.String("cadet_id", cadetID), zap.Error(err))
	}
}
