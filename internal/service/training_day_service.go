package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/rotc-portal/grading-api/internal/models"
	appErrors "github.com/rotc-portal/grading-api/pkg/errors"
)

const pgUniqueViolation = "23505"

type trainingDayRepo interface {
	List(ctx context.Context, filter models.TrainingDayFilter) ([]models.TrainingDay, int, error)
	FindByID(ctx context.Context, id string) (*models.TrainingDay, error)
	Create(ctx context.Context, day *models.TrainingDay) error
	Update(ctx context.Context, day *models.TrainingDay) error
	Delete(ctx context.Context, id string) error
}

type attendanceByDayCounter interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error)
}

// TrainingDayRequest creates or updates a scheduled session.
type TrainingDayRequest struct {
	Date  time.Time `json:"date" validate:"required"`
	Title string    `json:"title" validate:"required"`
	Notes *string   `json:"notes"`
}

// TrainingDayService manages the training schedule.
type TrainingDayService struct {
	days      trainingDayRepo
	records   attendanceByDayCounter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTrainingDayService constructs TrainingDayService.
func NewTrainingDayService(days trainingDayRepo, records attendanceByDayCounter, validate *validator.Validate, logger *zap.Logger) *TrainingDayService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrainingDayService{days: days, records: records, validator: validate, logger: logger}
}

// List returns training days per filter.
func (s *TrainingDayService) List(ctx context.Context, filter models.TrainingDayFilter) ([]models.TrainingDay, int, error) {
	days, total, err := s.days.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list training days")
	}
	return days, total, nil
}

// Get returns a single training day.
func (s *TrainingDayService) Get(ctx context.Context, id string) (*models.TrainingDay, error) {
	day, err := s.days.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training day not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load training day")
	}
	return day, nil
}

// Create schedules a session. Dates are unique per schedule.
func (s *TrainingDayService) Create(ctx context.Context, req TrainingDayRequest) (*models.TrainingDay, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid training day payload")
	}
	day := &models.TrainingDay{Date: req.Date, Title: req.Title, Notes: req.Notes}
	if err := s.days.Create(ctx, day); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a training day already exists on that date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to create training day")
	}
	return day, nil
}

// Update modifies a session.
func (s *TrainingDayService) Update(ctx context.Context, id string, req TrainingDayRequest) (*models.TrainingDay, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid training day payload")
	}
	day, err := s.days.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training day not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load training day")
	}
	day.Date = req.Date
	day.Title = req.Title
	day.Notes = req.Notes
	if err := s.days.Update(ctx, day); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a training day already exists on that date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to update training day")
	}
	return day, nil
}

// Delete removes a session that has no attendance records yet.
func (s *TrainingDayService) Delete(ctx context.Context, id string) error {
	if _, err := s.days.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "training day not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load training day")
	}
	_, total, err := s.records.List(ctx, models.AttendanceFilter{TrainingDayID: id, PageSize: 1})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to check attendance")
	}
	if total > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "training day already has attendance records")
	}
	if err := s.days.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to delete training day")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}
