package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rotc-portal/grading-api/internal/models"
	appErrors "github.com/rotc-portal/grading-api/pkg/errors"
)

type cadetRepo interface {
	List(ctx context.Context, filter models.CadetFilter) ([]models.Cadet, int, error)
	FindByID(ctx context.Context, id string) (*models.Cadet, error)
	Exists(ctx context.Context, studentNumber, excludeID string) (bool, error)
	Create(ctx context.Context, cadet *models.Cadet) error
	Update(ctx context.Context, cadet *models.Cadet) error
	Archive(ctx context.Context, id string) error
}

// CreateCadetRequest enrolls a new cadet.
type CreateCadetRequest struct {
	StudentNumber string `json:"student_number" validate:"required"`
	FullName      string `json:"full_name" validate:"required"`
	Unit          string `json:"unit" validate:"required"`
	Course        string `json:"course"`
	Phone         string `json:"phone"`
}

// UpdateCadetRequest modifies an existing cadet.
type UpdateCadetRequest struct {
	StudentNumber string `json:"student_number" validate:"required"`
	FullName      string `json:"full_name" validate:"required"`
	Unit          string `json:"unit" validate:"required"`
	Course        string `json:"course"`
	Phone         string `json:"phone"`
	Active        *bool  `json:"active"`
}

// CadetService manages the cadet roster.
type CadetService struct {
	cadets    cadetRepo
	cache     gradeCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCadetService constructs CadetService.
func NewCadetService(cadets cadetRepo, cache gradeCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *CadetService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CadetService{cadets: cadets, cache: cache, validator: validate, logger: logger}
}

// List returns cadets per filter.
func (s *CadetService) List(ctx context.Context, filter models.CadetFilter) ([]models.Cadet, int, error) {
	cadets, total, err := s.cadets.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list cadets")
	}
	return cadets, total, nil
}

// Get returns a single cadet.
func (s *CadetService) Get(ctx context.Context, id string) (*models.Cadet, error) {
	cadet, err := s.cadets.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cadet not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load cadet")
	}
	return cadet, nil
}

// Create enrolls a cadet. Every cadet starts with a zeroed grade summary row.
func (s *CadetService) Create(ctx context.Context, req CreateCadetRequest) (*models.Cadet, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cadet payload")
	}
	exists, err := s.cadets.Exists(ctx, req.StudentNumber, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to check student number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student number already enrolled")
	}
	cadet := &models.Cadet{
		StudentNumber: req.StudentNumber,
		FullName:      req.FullName,
		Unit:          req.Unit,
		Course:        req.Course,
		Phone:         req.Phone,
		Active:        true,
	}
	if err := s.cadets.Create(ctx, cadet); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to create cadet")
	}
	return cadet, nil
}

// Update modifies a cadet.
func (s *CadetService) Update(ctx context.Context, id string, req UpdateCadetRequest) (*models.Cadet, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cadet payload")
	}
	cadet, err := s.cadets.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cadet not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load cadet")
	}
	exists, err := s.cadets.Exists(ctx, req.StudentNumber, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to check student number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student number already enrolled")
	}

	cadet.StudentNumber = req.StudentNumber
	cadet.FullName = req.FullName
	cadet.Unit = req.Unit
	cadet.Course = req.Course
	cadet.Phone = req.Phone
	if req.Active != nil {
		cadet.Active = *req.Active
	}
	if err := s.cadets.Update(ctx, cadet); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to update cadet")
	}
	return cadet, nil
}

// Archive soft-deletes a cadet; attendance and conduct history stays intact.
func (s *CadetService) Archive(ctx context.Context, id string) error {
	if _, err := s.cadets.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "cadet not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load cadet")
	}
	if err := s.cadets.Archive(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to archive cadet")
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, gradeCacheKey(id)); err != nil {
			s.logger.Warn("failed to invalidate grade cache", zap.String("cadet_id", id), zap.Error(err))
		}
	}
	return nil
}
