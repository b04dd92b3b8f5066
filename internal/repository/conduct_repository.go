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

// ConductRepository manages the append-only merit/demerit log.
type ConductRepository struct {
	db *sqlx.DB
}

// NewConductRepository constructs the repository.
func NewConductRepository(db *sqlx.DB) *ConductRepository {
	return &ConductRepository{db: db}
}

// List returns conduct entries per the provided filter.
func (r *ConductRepository) List(ctx context.Context, filter models.ConductFilter) ([]models.ConductEntry, int, error) {
	base := "FROM conduct_entries"
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.CadetID != "" {
		where = append(where, fmt.Sprintf("cadet_id = $%d", len(args)+1))
		args = append(args, filter.CadetID)
	}
	if filter.EntryType != nil {
		where = append(where, fmt.Sprintf("entry_type = $%d", len(args)+1))
		args = append(args, *filter.EntryType)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("recorded_at >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("recorded_at <= $%d", len(args)+1))
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

	query := fmt.Sprintf(`SELECT id, cadet_id, entry_type, points, reason, recorded_at, created_by, created_at
%s WHERE %s ORDER BY recorded_at DESC, created_at DESC LIMIT %d OFFSET %d`, base, whereClause, size, offset)
	var entries []models.ConductEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list conduct entries: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count conduct entries: %w", err)
	}
	return entries, total, nil
}

// Create appends a new conduct entry. Entries are never updated or deleted.
func (r *ConductRepository) Create(ctx context.Context, entry *models.ConductEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO conduct_entries (id, cadet_id, entry_type, points, reason, recorded_at, created_by, created_at)
VALUES (:id, :cadet_id, :entry_type, :points, :reason, :recorded_at, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create conduct entry: %w", err)
	}
	return nil
}

// Summary recomputes point totals for a cadet by summation over the log.
func (r *ConductRepository) Summary(ctx context.Context, cadetID string) (*models.ConductSummary, error) {
	query := `SELECT
        COALESCE(SUM(CASE WHEN entry_type = 'merit' THEN points ELSE 0 END), 0) AS merit_points,
        COALESCE(SUM(CASE WHEN entry_type = 'demerit' THEN points ELSE 0 END), 0) AS demerit_points,
        COALESCE(SUM(CASE WHEN entry_type = 'merit' THEN 1 ELSE 0 END), 0) AS merit_count,
        COALESCE(SUM(CASE WHEN entry_type = 'demerit' THEN 1 ELSE 0 END), 0) AS demerit_count
FROM conduct_entries
WHERE cadet_id = $1`
	summary := models.ConductSummary{CadetID: cadetID}
	if err := r.db.QueryRowxContext(ctx, query, cadetID).Scan(&summary.MeritPoints, &summary.DemeritPoints, &summary.MeritCount, &summary.DemeritCount); err != nil {
		return nil, fmt.Errorf("conduct summary: %w", err)
	}
	return &summary, nil
}
