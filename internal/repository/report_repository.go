package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rotc-portal/grading-api/internal/models"
)

// ReportRepository persists background report job metadata.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a queued job row.
func (r *ReportRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	query := `INSERT INTO report_jobs (id, type, format, status, created_by, created_at)
VALUES (:id, :type, :format, :status, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// FindByID returns a single job row.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	var job models.ReportJob
	query := `SELECT id, type, format, status, file_path, created_by, created_at, finished_at, error_message
FROM report_jobs WHERE id = $1`
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkProcessing transitions a job to PROCESSING.
func (r *ReportRepository) MarkProcessing(ctx context.Context, id string) error {
	query := "UPDATE report_jobs SET status = $1 WHERE id = $2"
	if _, err := r.db.ExecContext(ctx, query, models.ReportStatusProcessing, id); err != nil {
		return fmt.Errorf("mark report processing: %w", err)
	}
	return nil
}

// Finish records a successful run and the generated file path.
func (r *ReportRepository) Finish(ctx context.Context, id, filePath string) error {
	query := "UPDATE report_jobs SET status = $1, file_path = $2, finished_at = $3 WHERE id = $4"
	if _, err := r.db.ExecContext(ctx, query, models.ReportStatusFinished, filePath, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("finish report job: %w", err)
	}
	return nil
}

// Fail records a failed run and the error message.
func (r *ReportRepository) Fail(ctx context.Context, id, message string) error {
	query := "UPDATE report_jobs SET status = $1, error_message = $2, finished_at = $3 WHERE id = $4"
	if _, err := r.db.ExecContext(ctx, query, models.ReportStatusFailed, message, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("fail report job: %w", err)
	}
	return nil
}
