package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rotc-portal/grading-api/internal/models"
)

// TrainingDayRepository handles persistence for scheduled training sessions.
type TrainingDayRepository struct {
	db *sqlx.DB
}

// NewTrainingDayRepository constructs the repository.
func NewTrainingDayRepository(db *sqlx.DB) *TrainingDayRepository {
	return &TrainingDayRepository{db: db}
}

// List returns training days matching the filter, most recent first.
func (r *TrainingDayRepository) List(ctx context.Context, filter models.TrainingDayFilter) ([]models.TrainingDay, int, error) {
	base := "FROM training_days"
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, date, title, notes, created_at, updated_at
%s WHERE %s ORDER BY date DESC LIMIT %d OFFSET %d`, base, whereClause, size, offset)
	var days []models.TrainingDay
	if err := r.db.SelectContext(ctx, &days, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list training days: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count training days: %w", err)
	}
	return days, total, nil
}

// FindByID returns a single training day.
func (r *TrainingDayRepository) FindByID(ctx context.Context, id string) (*models.TrainingDay, error) {
	var day models.TrainingDay
	query := "SELECT id, date, title, notes, created_at, updated_at FROM training_days WHERE id = $1"
	if err := r.db.GetContext(ctx, &day, query, id); err != nil {
		return nil, err
	}
	return &day, nil
}

// Create inserts a new training day. The date carries a unique constraint.
func (r *TrainingDayRepository) Create(ctx context.Context, day *models.TrainingDay) error {
	now := time.Now().UTC()
	if day.ID == "" {
		day.ID = uuid.NewString()
	}
	day.CreatedAt = now
	day.UpdatedAt = now
	query := `INSERT INTO training_days (id, date, title, notes, created_at, updated_at)
VALUES (:id, :date, :title, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, day); err != nil {
		return fmt.Errorf("create training day: %w", err)
	}
	return nil
}

// Update modifies a training day.
func (r *TrainingDayRepository) Update(ctx context.Context, day *models.TrainingDay) error {
	day.UpdatedAt = time.Now().UTC()
	query := `UPDATE training_days SET date = :date, title = :title, notes = :notes, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, day); err != nil {
		return fmt.Errorf("update training day: %w", err)
	}
	return nil
}

// Delete removes a training day that has no attendance yet.
func (r *TrainingDayRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM training_days WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete training day: %w", err)
	}
	return nil
}
