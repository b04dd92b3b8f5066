package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rotc-portal/grading-api/internal/models"
	appErrors "github.com/rotc-portal/grading-api/pkg/errors"
	"github.com/rotc-portal/grading-api/pkg/jobs"
	"github.com/rotc-portal/grading-api/pkg/storage"
)

// mockReportJobStore is mutex-guarded because queue workers run concurrently
// with the test goroutine.
type mockReportJobStore struct {
	mu     sync.Mutex
	jobs   map[string]*models.ReportJob
	nextID int
}

func (m *mockReportJobStore) Create(_ context.Context, job *models.ReportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	if job.ID == "" {
		job.ID = fmt.Sprintf("rj-%d", m.nextID)
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	job.CreatedAt = time.Now().UTC()
	clone := *job
	m.jobs[job.ID] = &clone
	return nil
}

func (m *mockReportJobStore) FindByID(_ context.Context, id string) (*models.ReportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *job
	return &clone, nil
}

func (m *mockReportJobStore) MarkProcessing(_ context.Context, id string) error {
	return m.setStatus(id, models.ReportStatusProcessing)
}

func (m *mockReportJobStore) Finish(_ context.Context, id, filePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	now := time.Now().UTC()
	job.Status = models.ReportStatusFinished
	job.FilePath = &filePath
	job.FinishedAt = &now
	return nil
}

func (m *mockReportJobStore) Fail(_ context.Context, id, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	job.Status = models.ReportStatusFailed
	job.ErrorMessage = &message
	return nil
}

func (m *mockReportJobStore) setStatus(id string, status models.ReportStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	job.Status = status
	return nil
}

type mockAuditSource struct {
	mismatches []models.AttendanceMismatch
}

func (m *mockAuditSource) AuditConsistency(_ context.Context) ([]models.AttendanceMismatch, error) {
	return m.mismatches, nil
}

type mockSheetSource struct {
	rows []models.GradeSheetRow
}

func (m *mockSheetSource) GradeSheet(_ context.Context) ([]models.GradeSheetRow, error) {
	return m.rows, nil
}

type reportFixture struct {
	svc   *ReportService
	store *mockReportJobStore
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("report-test-secret", time.Minute)
	audits := &mockAuditSource{mismatches: []models.AttendanceMismatch{
		{CadetID: "c-2", CadetName: "Santos, Ben", StoredCount: 3, ActualCount: 1},
	}}
	sheets := &mockSheetSource{rows: []models.GradeSheetRow{
		{
			CadetID:       "c-1",
			StudentNumber: "2024-0001",
			CadetName:     "Reyes, Ana",
			Unit:          "1st Platoon",
			Result: models.GradeResult{
				CadetID:         "c-1",
				AttendanceScore: 24,
				AptitudeScore:   25,
				SubjectScore:    34,
				FinalGrade:      83,
				TransmutedGrade: "2.25",
				Remarks:         "Passed",
			},
		},
	}}
	store := &mockReportJobStore{jobs: map[string]*models.ReportJob{}}
	svc := NewReportService(store, audits, sheets, local, signer, nil, jobs.QueueConfig{Workers: 1, MaxRetries: 1, RetryDelay: 10 * time.Millisecond}, zap.NewNop())
	return &reportFixture{svc: svc, store: store}
}

func waitForStatus(t *testing.T, svc *ReportService, id string, want models.ReportStatus) *models.ReportJob {
	t.Helper()
	var job *models.ReportJob
	require.Eventually(t, func() bool {
		var err error
		job, err = svc.Status(context.Background(), id)
		return err == nil && job.Status == want
	}, 2*time.Second, 10*time.Millisecond)
	return job
}

func TestReportServiceAuditCSVRoundTrip(t *testing.T) {
	f := newReportFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.svc.Start(ctx)
	defer f.svc.Stop()

	job, err := f.svc.Enqueue(ctx, CreateReportRequest{Type: "attendance_audit", Format: "csv", CreatedBy: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, job.Status)

	finished := waitForStatus(t, f.svc, job.ID, models.ReportStatusFinished)
	require.NotNil(t, finished.DownloadURL)
	token := strings.TrimPrefix(*finished.DownloadURL, "/reports/download/")

	file, downloaded, err := f.svc.Download(ctx, token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, job.ID, downloaded.ID)

	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Cadet,Cadet ID,Stored Count,Actual Count")
	assert.Contains(t, string(content), `"Santos, Ben",c-2,3,1`)
}

func TestReportServiceGradeSheetPDF(t *testing.T) {
	f := newReportFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.svc.Start(ctx)
	defer f.svc.Stop()

	job, err := f.svc.Enqueue(ctx, CreateReportRequest{Type: "grade_sheet", Format: "pdf", CreatedBy: "u-1"})
	require.NoError(t, err)

	finished := waitForStatus(t, f.svc, job.ID, models.ReportStatusFinished)
	require.NotNil(t, finished.FilePath)

	file, _, err := f.svc.Download(ctx, strings.TrimPrefix(*finished.DownloadURL, "/reports/download/"))
	require.NoError(t, err)
	defer file.Close()

	header := make([]byte, 4)
	_, err = io.ReadFull(file, header)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(header))
}

func TestReportServiceRejectsUnknownType(t *testing.T) {
	f := newReportFixture(t)

	_, err := f.svc.Enqueue(context.Background(), CreateReportRequest{Type: "roster", Format: "csv"})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
	assert.Empty(t, f.store.jobs)
}

func TestReportServiceEnqueueBeforeStartMarksJobFailed(t *testing.T) {
	f := newReportFixture(t)

	job, err := f.svc.Enqueue(context.Background(), CreateReportRequest{Type: "grade_sheet", Format: "csv"})
	require.Error(t, err)
	require.Nil(t, job)
	require.Len(t, f.store.jobs, 1)
	for _, stored := range f.store.jobs {
		assert.Equal(t, models.ReportStatusFailed, stored.Status)
	}
}

func TestReportServiceDownloadRejectsTamperedToken(t *testing.T) {
	f := newReportFixture(t)

	_, _, err := f.svc.Download(context.Background(), "rj-1.9999999999.bm90LWEtcGF0aA.deadbeef")
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, err))
}

func TestReportServiceStatusUnknownJob(t *testing.T) {
	f := newReportFixture(t)

	_, err := f.svc.Status(context.Background(), "rj-404")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}
