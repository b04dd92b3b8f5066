package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rotc-portal/grading-api/internal/models"
)

// AttendanceRepository handles persistence for attendance records. The raw
// records table is the single source of truth; the grade summary count is a
// derived value reconciled from it.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// List returns attendance rows with cadet and session metadata.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error) {
	base := `FROM attendance_records ar
JOIN cadets c ON c.id = ar.cadet_id
JOIN training_days td ON td.id = ar.training_day_id`
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.CadetID != "" {
		where = append(where, fmt.Sprintf("ar.cadet_id = $%d", len(args)+1))
		args = append(args, filter.CadetID)
	}
	if filter.TrainingDayID != "" {
		where = append(where, fmt.Sprintf("ar.training_day_id = $%d", len(args)+1))
		args = append(args, filter.TrainingDayID)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("LOWER(TRIM(ar.status)) = $%d", len(args)+1))
		args = append(args, string(filter.Status.Normalize()))
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("td.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("td.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	allowedSort := map[string]string{
		"date":       "td.date",
		"status":     "ar.status",
		"created_at": "ar.created_at",
	}
	sortColumn, ok := allowedSort[filter.SortBy]
	if !ok {
		sortColumn = "td.date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT ar.id, ar.cadet_id, ar.training_day_id, ar.status, ar.remarks, ar.created_at, ar.updated_at,
        c.full_name AS cadet_name, td.date AS training_date, td.title AS training_name
        %s WHERE %s
        ORDER BY %s %s
        LIMIT %d OFFSET %d`, base, whereClause, sortColumn, order, size, offset)

	var rows []models.AttendanceRecordDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return rows, total, nil
}

// Upsert inserts or updates the record for a (cadet, training day) pair.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	query := `INSERT INTO attendance_records (id, cadet_id, training_day_id, status, remarks, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (cadet_id, training_day_id)
DO UPDATE SET status = EXCLUDED.status, remarks = EXCLUDED.remarks, updated_at = EXCLUDED.updated_at
RETURNING id, cadet_id, training_day_id, status, remarks, created_at, updated_at`
	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query, record.ID, record.CadetID, record.TrainingDayID, record.Status, record.Remarks, record.CreatedAt, record.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert attendance record: %w", err)
	}
	return &stored, nil
}

// BulkInsert inserts many records for one training day; returns conflicting
// entries when running in partial mode.
func (r *AttendanceRepository) BulkInsert(ctx context.Context, records []models.AttendanceRecord, atomic bool) ([]models.AttendanceRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin bulk attendance: %w", err)
	}
	conflicts := make([]models.AttendanceRecord, 0)
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	query := `INSERT INTO attendance_records (id, cadet_id, training_day_id, status, remarks, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (cadet_id, training_day_id) DO NOTHING RETURNING id`
	now := time.Now().UTC()
	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.UpdatedAt = now
		var insertedID string
		if err := tx.QueryRowxContext(ctx, query, rec.ID, rec.CadetID, rec.TrainingDayID, rec.Status, rec.Remarks, rec.CreatedAt, rec.UpdatedAt).Scan(&insertedID); err != nil {
			if err == sql.ErrNoRows {
				conflicts = append(conflicts, *rec)
				if atomic {
					return nil, fmt.Errorf("bulk attendance: duplicate for cadet %s on day %s", rec.CadetID, rec.TrainingDayID)
				}
				continue
			}
			return nil, fmt.Errorf("bulk attendance: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bulk attendance: %w", err)
	}
	committed = true
	return conflicts, nil
}

// CountQualifying counts records whose status qualifies as present. Statuses
// are stored with inconsistent casing, so the comparison normalizes in SQL.
// Missing records contribute nothing; there is deliberately no join against
// training_days that would manufacture implicit absences.
func (r *AttendanceRepository) CountQualifying(ctx context.Context, cadetID string) (int, error) {
	query := `SELECT COUNT(*) FROM attendance_records
WHERE cadet_id = $1 AND LOWER(TRIM(status)) IN ('present', 'excused')`
	var count int
	if err := r.db.GetContext(ctx, &count, query, cadetID); err != nil {
		return 0, fmt.Errorf("count qualifying attendance: %w", err)
	}
	return count, nil
}

// ConsistencyRows compares the stored attendance_present against a fresh
// count for every cadet. The left joins keep cadets with no records or no
// summary row in the result with zero counts.
func (r *AttendanceRepository) ConsistencyRows(ctx context.Context) ([]models.AttendanceMismatch, error) {
	query := `SELECT c.id AS cadet_id, c.full_name AS cadet_name,
        COALESCE(gs.attendance_present, 0) AS stored_count,
        COALESCE(cnt.actual, 0) AS actual_count
FROM cadets c
LEFT JOIN grade_summaries gs ON gs.cadet_id = c.id
LEFT JOIN (
        SELECT cadet_id, COUNT(*) AS actual
        FROM attendance_records
        WHERE LOWER(TRIM(status)) IN ('present', 'excused')
        GROUP BY cadet_id
) cnt ON cnt.cadet_id = c.id
ORDER BY c.full_name ASC`
	var rows []models.AttendanceMismatch
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("attendance consistency rows: %w", err)
	}
	return rows, nil
}

// HistoryByCadet returns a cadet's attendance history, newest first.
func (r *AttendanceRepository) HistoryByCadet(ctx context.Context, cadetID string, from, to *time.Time) ([]models.AttendanceRecordDetail, error) {
	where := []string{"ar.cadet_id = $1"}
	args := []interface{}{cadetID}
	if from != nil {
		where = append(where, fmt.Sprintf("td.date >= $%d", len(args)+1))
		args = append(args, *from)
	}
	if to != nil {
		where = append(where, fmt.Sprintf("td.date <= $%d", len(args)+1))
		args = append(args, *to)
	}
	query := fmt.Sprintf(`SELECT ar.id, ar.cadet_id, ar.training_day_id, ar.status, ar.remarks, ar.created_at, ar.updated_at,
        c.full_name AS cadet_name, td.date AS training_date, td.title AS training_name
FROM attendance_records ar
JOIN cadets c ON c.id = ar.cadet_id
JOIN training_days td ON td.id = ar.training_day_id
WHERE %s
ORDER BY td.date DESC`, strings.Join(where, " AND "))
	var rows []models.AttendanceRecordDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("attendance history: %w", err)
	}
	return rows, nil
}
