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

// CadetRepository handles persistence for cadet records.
type CadetRepository struct {
	db *sqlx.DB
}

// NewCadetRepository constructs the repository.
func NewCadetRepository(db *sqlx.DB) *CadetRepository {
	return &CadetRepository{db: db}
}

// List returns cadets matching the provided filter.
func (r *CadetRepository) List(ctx context.Context, filter models.CadetFilter) ([]models.Cadet, int, error) {
	base := "FROM cadets"
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(full_name ILIKE $%d OR student_number ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Unit != "" {
		where = append(where, fmt.Sprintf("unit = $%d", len(args)+1))
		args = append(args, filter.Unit)
	}
	if filter.Active != nil {
		where = append(where, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	whereClause := strings.Join(where, " AND ")

	allowedSort := map[string]string{
		"name":           "full_name",
		"student_number": "student_number",
		"created_at":     "created_at",
	}
	sortColumn, ok := allowedSort[filter.SortBy]
	if !ok {
		sortColumn = "full_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, student_number, full_name, unit, course, phone, active, created_at, updated_at
%s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, whereClause, sortColumn, order, size, offset)

	var cadets []models.Cadet
	if err := r.db.SelectContext(ctx, &cadets, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list cadets: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count cadets: %w", err)
	}
	return cadets, total, nil
}

// FindByID returns a single cadet.
func (r *CadetRepository) FindByID(ctx context.Context, id string) (*models.Cadet, error) {
	var cadet models.Cadet
	query := `SELECT id, student_number, full_name, unit, course, phone, active, created_at, updated_at
FROM cadets WHERE id = $1`
	if err := r.db.GetContext(ctx, &cadet, query, id); err != nil {
		return nil, err
	}
	return &cadet, nil
}

// Exists reports whether a cadet with the student number is already enrolled.
func (r *CadetRepository) Exists(ctx context.Context, studentNumber, excludeID string) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM cadets WHERE student_number = $1 AND ($2 = '' OR id <> $2)"
	if err := r.db.GetContext(ctx, &count, query, studentNumber, excludeID); err != nil {
		return false, fmt.Errorf("check cadet exists: %w", err)
	}
	return count > 0, nil
}

// Create inserts a cadet together with a zeroed grade summary row in one
// transaction, so every cadet always has a summary.
func (r *CadetRepository) Create(ctx context.Context, cadet *models.Cadet) error {
	now := time.Now().UTC()
	if cadet.ID == "" {
		cadet.ID = uuid.NewString()
	}
	cadet.CreatedAt = now
	cadet.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create cadet: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	insertCadet := `INSERT INTO cadets (id, student_number, full_name, unit, course, phone, active, created_at, updated_at)
VALUES (:id, :student_number, :full_name, :unit, :course, :phone, :active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertCadet, cadet); err != nil {
		return fmt.Errorf("create cadet: %w", err)
	}

	insertSummary := `INSERT INTO grade_summaries (id, cadet_id, attendance_present, merit_points, demerit_points, prelim_score, midterm_score, final_score, created_at, updated_at)
VALUES ($1, $2, 0, 0, 0, 0, 0, 0, $3, $3)`
	if _, err := tx.ExecContext(ctx, insertSummary, uuid.NewString(), cadet.ID, now); err != nil {
		return fmt.Errorf("create grade summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create cadet: %w", err)
	}
	committed = true
	return nil
}

// Update modifies an existing cadet.
func (r *CadetRepository) Update(ctx context.Context, cadet *models.Cadet) error {
	cadet.UpdatedAt = time.Now().UTC()
	query := `UPDATE cadets SET student_number = :student_number, full_name = :full_name, unit = :unit,
course = :course, phone = :phone, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, cadet); err != nil {
		return fmt.Errorf("update cadet: %w", err)
	}
	return nil
}

// Archive soft-deletes a cadet. Raw attendance and conduct history is kept.
func (r *CadetRepository) Archive(ctx context.Context, id string) error {
	query := "UPDATE cadets SET active = false, updated_at = $2 WHERE id = $1"
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("archive cadet: %w", err)
	}
	return nil
}
