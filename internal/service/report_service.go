package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rotc-portal/grading-api/internal/models"
	appErrors "github.com/rotc-portal/grading-api/pkg/errors"
	"github.com/rotc-portal/grading-api/pkg/export"
	"github.com/rotc-portal/grading-api/pkg/jobs"
)

type reportJobRepo interface {
	Create(ctx context.Context, job *models.ReportJob) error
	FindByID(ctx context.Context, id string) (*models.ReportJob, error)
	MarkProcessing(ctx context.Context, id string) error
	Finish(ctx context.Context, id, filePath string) error
	Fail(ctx context.Context, id, message string) error
}

type auditSource interface {
	AuditConsistency(ctx context.Context) ([]models.AttendanceMismatch, error)
}

type sheetSource interface {
	GradeSheet(ctx context.Context) ([]models.GradeSheetRow, error)
}

type reportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type urlSigner interface {
	Generate(jobID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error)
}

type reportObserver interface {
	RecordReportJob(jobType, outcome string)
}

// CreateReportRequest enqueues an asynchronous export.
type CreateReportRequest struct {
	Type      string `json:"type" validate:"required,oneof=attendance_audit grade_sheet"`
	Format    string `json:"format" validate:"required,oneof=csv pdf"`
	CreatedBy string `json:"-"`
}

// ReportService generates roster exports in the background. Jobs run on an
// in-memory worker queue; files land on local storage and are served through
// signed, expiring download tokens.
type ReportService struct {
	reports reportJobRepo
	audits  auditSource
	sheets  sheetSource
	storage reportStorage
	signer  urlSigner
	metrics reportObserver
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	queue   *jobs.Queue
	logger  *zap.Logger
}

// NewReportService constructs ReportService and its worker queue.
func NewReportService(reports reportJobRepo, audits auditSource, sheets sheetSource, storage reportStorage, signer urlSigner, metrics reportObserver, queueCfg jobs.QueueConfig, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReportService{
		reports: reports,
		audits:  audits,
		sheets:  sheets,
		storage: storage,
		signer:  signer,
		metrics: metrics,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
	queueCfg.Logger = logger
	s.queue = jobs.NewQueue("reports", s.process, queueCfg)
	return s
}

// Start begins background workers.
func (s *ReportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains workers.
func (s *ReportService) Stop() {
	s.queue.Stop()
}

// Enqueue persists a queued job row and hands it to the worker pool.
func (s *ReportService) Enqueue(ctx context.Context, req CreateReportRequest) (*models.ReportJob, error) {
	reportType := models.ReportType(req.Type)
	format := models.ReportFormat(req.Format)
	switch reportType {
	case models.ReportTypeAttendanceAudit, models.ReportTypeGradeSheet:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown report type %q", req.Type))
	}
	switch format {
	case models.ReportFormatCSV, models.ReportFormatPDF:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown report format %q", req.Format))
	}

	job := &models.ReportJob{
		Type:      reportType,
		Format:    format,
		Status:    models.ReportStatusQueued,
		CreatedBy: req.CreatedBy,
	}
	if err := s.reports.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to persist report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(reportType)}); err != nil {
		if failErr := s.reports.Fail(ctx, job.ID, "queue unavailable"); failErr != nil {
			s.logger.Error("failed to mark report job failed", zap.String("job_id", job.ID), zap.Error(failErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return job, nil
}

// Status returns a job row; finished jobs carry a signed download URL.
func (s *ReportService) Status(ctx context.Context, id string) (*models.ReportJob, error) {
	job, err := s.reports.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load report job")
	}
	if job.Status == models.ReportStatusFinished && job.FilePath != nil {
		token, _, err := s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			s.logger.Warn("failed to sign download url", zap.String("job_id", job.ID), zap.Error(err))
		} else {
			url := "/reports/download/" + token
			job.DownloadURL = &url
		}
	}
	return job, nil
}

// Download validates a signed token and opens the generated file.
func (s *ReportService) Download(ctx context.Context, token string) (*os.File, *models.ReportJob, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	job, err := s.reports.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load report job")
	}
	if job.Status != models.ReportStatusFinished || job.FilePath == nil || *job.FilePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "report file not available")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to open report file")
	}
	return file, job, nil
}

// process is the queue handler: it renders the dataset and stores the file.
func (s *ReportService) process(ctx context.Context, queued jobs.Job) error {
	job, err := s.reports.FindByID(ctx, queued.ID)
	if err != nil {
		return fmt.Errorf("load report job %s: %w", queued.ID, err)
	}
	if err := s.reports.MarkProcessing(ctx, job.ID); err != nil {
		return fmt.Errorf("mark report job %s processing: %w", job.ID, err)
	}

	dataset, title, err := s.buildDataset(ctx, job.Type)
	if err != nil {
		s.fail(ctx, job, err)
		return err
	}

	var payload []byte
	switch job.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unknown report format %q", job.Format)
	}
	if err != nil {
		s.fail(ctx, job, err)
		return err
	}

	filename := fmt.Sprintf("%s/%s-%s.%s", job.CreatedAt.Format("2006-01"), job.Type, job.ID, job.Format)
	stored, err := s.storage.Save(filename, payload)
	if err != nil {
		s.fail(ctx, job, err)
		return err
	}
	if err := s.reports.Finish(ctx, job.ID, stored); err != nil {
		return fmt.Errorf("finish report job %s: %w", job.ID, err)
	}
	if s.metrics != nil {
		s.metrics.RecordReportJob(string(job.Type), "finished")
	}
	s.logger.Info("report job finished", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.String("file", stored))
	return nil
}

func (s *ReportService) buildDataset(ctx context.Context, reportType models.ReportType) (export.Dataset, string, error) {
	switch reportType {
	case models.ReportTypeAttendanceAudit:
		mismatches, err := s.audits.AuditConsistency(ctx)
		if err != nil {
			return export.Dataset{}, "", err
		}
		dataset := export.Dataset{
			Headers: []string{"Cadet", "Cadet ID", "Stored Count", "Actual Count"},
			Rows:    make([]map[string]string, 0, len(mismatches)),
		}
		for _, m := range mismatches {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Cadet":        m.CadetName,
				"Cadet ID":     m.CadetID,
				"Stored Count": strconv.Itoa(m.StoredCount),
				"Actual Count": strconv.Itoa(m.ActualCount),
			})
		}
		return dataset, "Attendance Consistency Audit", nil
	case models.ReportTypeGradeSheet:
		rows, err := s.sheets.GradeSheet(ctx)
		if err != nil {
			return export.Dataset{}, "", err
		}
		dataset := export.Dataset{
			Headers: []string{"Student Number", "Name", "Unit", "Attendance", "Aptitude", "Subject", "Final Grade", "Transmuted", "Remarks"},
			Rows:    make([]map[string]string, 0, len(rows)),
		}
		for _, row := range rows {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Student Number": row.StudentNumber,
				"Name":           row.CadetName,
				"Unit":           row.Unit,
				"Attendance":     strconv.FormatFloat(row.Result.AttendanceScore, 'f', 2, 64),
				"Aptitude":       strconv.FormatFloat(row.Result.AptitudeScore, 'f', 2, 64),
				"Subject":        strconv.FormatFloat(row.Result.SubjectScore, 'f', 2, 64),
				"Final Grade":    strconv.FormatFloat(row.Result.FinalGrade, 'f', 2, 64),
				"Transmuted":     row.Result.TransmutedGrade,
				"Remarks":        row.Result.Remarks,
			})
		}
		return dataset, "Cadet Grade Sheet", nil
	default:
		return export.Dataset{}, "", fmt.Errorf("unknown report type %q", reportType)
	}
}

func (s *ReportService) fail(ctx context.Context, job *models.ReportJob, cause error) {
	if err := s.reports.Fail(ctx, job.ID, cause.Error()); err != nil {
		s.logger.Error("failed to mark report job failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RecordReportJob(string(job.Type), "failed")
	}
}
