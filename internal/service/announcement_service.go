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

type announcementRepo interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
	FindByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, a *models.Announcement) error
	Update(ctx context.Context, a *models.Announcement) error
	Delete(ctx context.Context, id string) error
}

// AnnouncementRequest creates or updates an announcement.
type AnnouncementRequest struct {
	Title     string     `json:"title" validate:"required"`
	Content   string     `json:"content" validate:"required"`
	Audience  string     `json:"audience" validate:"required,oneof=ALL STAFF CADETS"`
	IsPinned  bool       `json:"is_pinned"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedBy string     `json:"-"`
}

// AnnouncementService manages unit announcements.
type AnnouncementService struct {
	announcements announcementRepo
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewAnnouncementService constructs AnnouncementService.
func NewAnnouncementService(announcements announcementRepo, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{announcements: announcements, validator: validate, logger: logger}
}

// ListForRole returns announcements visible to the caller's role.
func (s *AnnouncementService) ListForRole(ctx context.Context, role models.UserRole, pinned *bool, page, pageSize int) ([]models.Announcement, int, error) {
	filter := models.AnnouncementFilter{
		Audience: audienceFor(role),
		Pinned:   pinned,
		Page:     page,
		PageSize: pageSize,
	}
	rows, total, err := s.announcements.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list announcements")
	}
	return rows, total, nil
}

// Get returns a single announcement.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*models.Announcement, error) {
	a, err := s.announcements.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load announcement")
	}
	return a, nil
}

// Create publishes an announcement.
func (s *AnnouncementService) Create(ctx context.Context, req AnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	a := &models.Announcement{
		Title:     req.Title,
		Content:   req.Content,
		Audience:  models.AnnouncementAudience(req.Audience),
		IsPinned:  req.IsPinned,
		ExpiresAt: req.ExpiresAt,
		CreatedBy: req.CreatedBy,
	}
	if err := s.announcements.Create(ctx, a); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to create announcement")
	}
	return a, nil
}

// Update modifies an announcement.
func (s *AnnouncementService) Update(ctx context.Context, id string, req AnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	a, err := s.announcements.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load announcement")
	}
	a.Title = req.Title
	a.Content = req.Content
	a.Audience = models.AnnouncementAudience(req.Audience)
	a.IsPinned = req.IsPinned
	a.ExpiresAt = req.ExpiresAt
	if err := s.announcements.Update(ctx, a); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to update announcement")
	}
	return a, nil
}

// Delete removes an announcement.
func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	if _, err := s.announcements.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load announcement")
	}
	if err := s.announcements.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to delete announcement")
	}
	return nil
}

// audienceFor maps a caller role onto the audience filter. Staff and admins
// see staff announcements; cadets see cadet announcements; both see ALL.
func audienceFor(role models.UserRole) models.AnnouncementAudience {
	switch role {
	case models.RoleCadet:
		return models.AnnouncementAudienceCadets
	case models.RoleStaff, models.RoleAdmin:
		return models.AnnouncementAudienceStaff
	default:
		return models.AnnouncementAudienceAll
	}
}
