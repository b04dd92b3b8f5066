package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rotc-portal/grading-api/internal/models"
	appErrors "github.com/rotc-portal/grading-api/pkg/errors"
)

type conductRepo interface {
	List(ctx context.Context, filter models.ConductFilter) ([]models.ConductEntry, int, error)
	Create(ctx context.Context, entry *models.ConductEntry) error
	Summary(ctx context.Context, cadetID string) (*models.ConductSummary, error)
}

type conductSummaryWriter interface {
	SetConductPoints(ctx context.Context, cadetID string, meritPoints, demeritPoints int) error
}

// CreateConductRequest appends one merit or demerit event.
type CreateConductRequest struct {
	CadetID    string     `json:"cadet_id" validate:"required"`
	EntryType  string     `json:"entry_type" validate:"required,oneof=merit demerit"`
	Points     int        `json:"points" validate:"required,gt=0"`
	Reason     string     `json:"reason" validate:"required"`
	RecordedAt *time.Time `json:"recorded_at"`
	CreatedBy  string     `json:"-"`
}

// ConductService manages the append-only merit/demerit log and keeps the
// summary totals reconciled by summation over it.
type ConductService struct {
	entries   conductRepo
	cadets    cadetReader
	summaries conductSummaryWriter
	cache     gradeCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewConductService constructs ConductService.
func NewConductService(entries conductRepo, cadets cadetReader, summaries conductSummaryWriter, cache gradeCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *ConductService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConductService{
		entries:   entries,
		cadets:    cadets,
		summaries: summaries,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// List returns conduct entries per filter.
func (s *ConductService) List(ctx context.Context, filter models.ConductFilter) ([]models.ConductEntry, int, error) {
	entries, total, err := s.entries.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list conduct entries")
	}
	return entries, total, nil
}

// Create appends an entry and refreshes the cadet's point totals. Corrections
// are made by appending a compensating entry, never by editing history.
func (s *ConductService) Create(ctx context.Context, req CreateConductRequest) (*models.ConductEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conduct payload")
	}
	entryType := models.ConductEntryType(req.EntryType)
	if !entryType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "entry type must be merit or demerit")
	}
	if _, err := s.cadets.FindByID(ctx, req.CadetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cadet not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load cadet")
	}

	recordedAt := time.Now().UTC()
	if req.RecordedAt != nil {
		recordedAt = req.RecordedAt.UTC()
	}
	entry := &models.ConductEntry{
		CadetID:    req.CadetID,
		EntryType:  entryType,
		Points:     req.Points,
		Reason:     req.Reason,
		RecordedAt: recordedAt,
		CreatedBy:  req.CreatedBy,
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to save conduct entry")
	}

	if err := s.refreshTotals(ctx, req.CadetID); err != nil {
		return nil, err
	}
	return entry, nil
}

// Summary returns recomputed point totals for a cadet.
func (s *ConductService) Summary(ctx context.Context, cadetID string) (*models.ConductSummary, error) {
	if _, err := s.cadets.FindByID(ctx, cadetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cadet not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load cadet")
	}
	summary, err := s.entries.Summary(ctx, cadetID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to aggregate conduct entries")
	}
	return summary, nil
}

// refreshTotals recomputes totals by summation over the log and overwrites
// the summary row, then drops the cached grade result.
func (s *ConductService) refreshTotals(ctx context.Context, cadetID string) error {
	summary, err := s.entries.Summary(ctx, cadetID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to aggregate conduct entries")
	}
	if err := s.summaries.SetConductPoints(ctx, cadetID, summary.MeritPoints, summary.DemeritPoints); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store conduct totals")
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, gradeCacheKey(cadetID)); err != nil {
			s.logger.Warn("failed to invalidate grade cache", zap.String("cadet_id", cadetID), zap.Error(err))
		}
	}
	return nil
}
