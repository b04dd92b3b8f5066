package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rotc-portal/grading-api/internal/models"
)

// GradeSummaryRepository handles the denormalized per-cadet summary row.
// Only raw inputs live here; derived scores are computed on read.
type GradeSummaryRepository struct {
	db *sqlx.DB
}

// NewGradeSummaryRepository constructs the repository.
func NewGradeSummaryRepository(db *sqlx.DB) *GradeSummaryRepository {
	return &GradeSummaryRepository{db: db}
}

// FindByCadet returns the summary row for a cadet.
func (r *GradeSummaryRepository) FindByCadet(ctx context.Context, cadetID string) (*models.GradeSummary, error) {
	var summary models.GradeSummary
	query := `SELECT id, cadet_id, attendance_present, merit_points, demerit_points, prelim_score, midterm_score, final_score, created_at, updated_at
FROM grade_summaries WHERE cadet_id = $1`
	if err := r.db.GetContext(ctx, &summary, query, cadetID); err != nil {
		return nil, err
	}
	return &summary, nil
}

// SetAttendancePresent overwrites the reconciled attendance count, creating
// the summary row with zeroed fields when it does not exist yet.
func (r *GradeSummaryRepository) SetAttendancePresent(ctx context.Context, cadetID string, count int) error {
	now := time.Now().UTC()
	query := `INSERT INTO grade_summaries (id, cadet_id, attendance_present, merit_points, demerit_points, prelim_score, midterm_score, final_score, created_at, updated_at)
VALUES ($1, $2, $3, 0, 0, 0, 0, 0, $4, $4)
ON CONFLICT (cadet_id)
DO UPDATE SET attendance_present = EXCLUDED.attendance_present, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), cadetID, count, now); err != nil {
		return fmt.Errorf("set attendance present: %w", err)
	}
	return nil
}

// SetConductPoints overwrites the merit/demerit totals, creating the summary
// row when missing.
func (r *GradeSummaryRepository) SetConductPoints(ctx context.Context, cadetID string, meritPoints, demeritPoints int) error {
	now := time.Now().UTC()
	query := `INSERT INTO grade_summaries (id, cadet_id, attendance_present, merit_points, demerit_points, prelim_score, midterm_score, final_score, created_at, updated_at)
VALUES ($1, $2, 0, $3, $4, 0, 0, 0, $5, $5)
ON CONFLICT (cadet_id)
DO UPDATE SET merit_points = EXCLUDED.merit_points, demerit_points = EXCLUDED.demerit_points, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), cadetID, meritPoints, demeritPoints, now); err != nil {
		return fmt.Errorf("set conduct points: %w", err)
	}
	return nil
}

// SetScores stores the three subject exam scores.
func (r *GradeSummaryRepository) SetScores(ctx context.Context, cadetID string, prelim, midterm, final float64) error {
	now := time.Now().UTC()
	query := `INSERT INTO grade_summaries (id, cadet_id, attendance_present, merit_points, demerit_points, prelim_score, midterm_score, final_score, created_at, updated_at)
VALUES ($1, $2, 0, 0, 0, $3, $4, $5, $6, $6)
ON CONFLICT (cadet_id)
DO UPDATE SET prelim_score = EXCLUDED.prelim_score, midterm_score = EXCLUDED.midterm_score, final_score = EXCLUDED.final_score, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), cadetID, prelim, midterm, final, now); err != nil {
		return fmt.Errorf("set subject scores: %w", err)
	}
	return nil
}

// ListDetails returns every active cadet's summary joined with identity, for
// roster-wide grade sheets. Cadets without a summary row appear zeroed.
func (r *GradeSummaryRepository) ListDetails(ctx context.Context) ([]models.GradeSummaryDetail, error) {
	query := `SELECT COALESCE(gs.id, '') AS id, c.id AS cadet_id,
        COALESCE(gs.attendance_present, 0) AS attendance_present,
        COALESCE(gs.merit_points, 0) AS merit_points,
        COALESCE(gs.demerit_points, 0) AS demerit_points,
        COALESCE(gs.prelim_score, 0) AS prelim_score,
        COALESCE(gs.midterm_score, 0) AS midterm_score,
        COALESCE(gs.final_score, 0) AS final_score,
        COALESCE(gs.created_at, c.created_at) AS created_at,
        COALESCE(gs.updated_at, c.updated_at) AS updated_at,
        c.student_number, c.full_name AS cadet_name, c.unit
FROM cadets c
LEFT JOIN grade_summaries gs ON gs.cadet_id = c.id
WHERE c.active = true
ORDER BY c.full_name ASC`
	var rows []models.GradeSummaryDetail
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list grade summaries: %w", err)
	}
	return rows, nil
}

// CadetIDs returns the ids of all active cadets, used by batch recomputation.
func (r *GradeSummaryRepository) CadetIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, "SELECT id FROM cadets WHERE active = true ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list cadet ids: %w", err)
	}
	return ids, nil
}
