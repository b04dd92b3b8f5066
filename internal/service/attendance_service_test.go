package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rotc-portal/grading-api/internal/models"
	appErrors "github.com/rotc-portal/grading-api/pkg/errors"
)

type mockCadetDirectory struct {
	cadets map[string]*models.Cadet
}

func (m *mockCadetDirectory) FindByID(_ context.Context, id string) (*models.Cadet, error) {
	cadet, ok := m.cadets[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *cadet
	return &clone, nil
}

type mockTrainingDayDirectory struct {
	days map[string]*models.TrainingDay
}

func (m *mockTrainingDayDirectory) FindByID(_ context.Context, id string) (*models.TrainingDay, error) {
	day, ok := m.days[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *day
	return &clone, nil
}

func attKey(cadetID, trainingDayID string) string {
	return cadetID + "|" + trainingDayID
}

type mockAttendanceStore struct {
	records map[string]models.AttendanceRecord
	audit   []models.AttendanceMismatch
}

func (m *mockAttendanceStore) List(_ context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error) {
	rows := make([]models.AttendanceRecordDetail, 0)
	for _, rec := range m.records {
		if filter.CadetID != "" && rec.CadetID != filter.CadetID {
			continue
		}
		if filter.TrainingDayID != "" && rec.TrainingDayID != filter.TrainingDayID {
			continue
		}
		rows = append(rows, models.AttendanceRecordDetail{AttendanceRecord: rec})
	}
	return rows, len(rows), nil
}

func (m *mockAttendanceStore) Upsert(_ context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	key := attKey(record.CadetID, record.TrainingDayID)
	if record.ID == "" {
		record.ID = key
	}
	m.records[key] = *record
	clone := *record
	return &clone, nil
}

func (m *mockAttendanceStore) BulkInsert(_ context.Context, records []models.AttendanceRecord, atomic bool) ([]models.AttendanceRecord, error) {
	conflicts := make([]models.AttendanceRecord, 0)
	for _, rec := range records {
		if _, ok := m.records[attKey(rec.CadetID, rec.TrainingDayID)]; ok {
			conflicts = append(conflicts, rec)
		}
	}
	if atomic && len(conflicts) > 0 {
		return nil, sql.ErrNoRows
	}
	for _, rec := range records {
		key := attKey(rec.CadetID, rec.TrainingDayID)
		if _, ok := m.records[key]; ok {
			continue
		}
		rec.ID = key
		m.records[key] = rec
	}
	return conflicts, nil
}

func (m *mockAttendanceStore) CountQualifying(_ context.Context, cadetID string) (int, error) {
	count := 0
	for _, rec := range m.records {
		if rec.CadetID == cadetID && rec.Status.CountsAsPresent() {
			count++
		}
	}
	return count, nil
}

func (m *mockAttendanceStore) ConsistencyRows(_ context.Context) ([]models.AttendanceMismatch, error) {
	return m.audit, nil
}

func (m *mockAttendanceStore) HistoryByCadet(_ context.Context, cadetID string, _, _ *time.Time) ([]models.AttendanceRecordDetail, error) {
	rows := make([]models.AttendanceRecordDetail, 0)
	for _, rec := range m.records {
		if rec.CadetID == cadetID {
			rows = append(rows, models.AttendanceRecordDetail{AttendanceRecord: rec})
		}
	}
	return rows, nil
}

type mockSummaryStore struct {
	rows    map[string]*models.GradeSummary
	details []models.GradeSummaryDetail
	ids     []string
}

func (m *mockSummaryStore) ensure(cadetID string) *models.GradeSummary {
	row, ok := m.rows[cadetID]
	if !ok {
		row = &models.GradeSummary{ID: "gs-" + cadetID, CadetID: cadetID}
		m.rows[cadetID] = row
	}
	return row
}

func (m *mockSummaryStore) FindByCadet(_ context.Context, cadetID string) (*models.GradeSummary, error) {
	row, ok := m.rows[cadetID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *row
	return &clone, nil
}

func (m *mockSummaryStore) SetAttendancePresent(_ context.Context, cadetID string, count int) error {
	m.ensure(cadetID).AttendancePresent = count
	return nil
}

func (m *mockSummaryStore) SetConductPoints(_ context.Context, cadetID string, meritPoints, demeritPoints int) error {
	row := m.ensure(cadetID)
	row.MeritPoints = meritPoints
	row.DemeritPoints = demeritPoints
	return nil
}

func (m *mockSummaryStore) SetScores(_ context.Context, cadetID string, prelim, midterm, final float64) error {
	row := m.ensure(cadetID)
	row.PrelimScore = prelim
	row.MidtermScore = midterm
	row.FinalScore = final
	return nil
}

func (m *mockSummaryStore) ListDetails(_ context.Context) ([]models.GradeSummaryDetail, error) {
	return m.details, nil
}

func (m *mockSummaryStore) CadetIDs(_ context.Context) ([]string, error) {
	return m.ids, nil
}

type mockGradeCache struct {
	enabled bool
	entries map[string][]byte
	deleted []string
}

func (m *mockGradeCache) Enabled() bool { return m.enabled }

func (m *mockGradeCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	if !m.enabled {
		return appErrors.ErrCacheMiss
	}
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockGradeCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *mockGradeCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.entries, key)
		m.deleted = append(m.deleted, key)
	}
	return nil
}

type mockObserver struct {
	recomputes      int
	auditMismatches int
	cacheHits       int
	cacheMisses     int
}

func (m *mockObserver) RecordRecompute() { m.recomputes++ }

func (m *mockObserver) RecordAuditMismatches(count int) { m.auditMismatches = count }

func (m *mockObserver) RecordCacheOperation(hit bool, _ time.Duration) {
	if hit {
		m.cacheHits++
	} else {
		m.cacheMisses++
	}
}

type attendanceFixture struct {
	svc       *AttendanceService
	records   *mockAttendanceStore
	summaries *mockSummaryStore
	cache     *mockGradeCache
	metrics   *mockObserver
}

func newAttendanceFixture() *attendanceFixture {
	cadets := &mockCadetDirectory{cadets: map[string]*models.Cadet{
		"c-1": {ID: "c-1", StudentNumber: "2024-0001", FullName: "Reyes, Ana", Unit: "1st Platoon", Active: true},
		"c-2": {ID: "c-2", StudentNumber: "2024-0002", FullName: "Santos, Ben", Unit: "1st Platoon", Active: true},
	}}
	days := &mockTrainingDayDirectory{days: map[string]*models.TrainingDay{
		"td-1": {ID: "td-1", Title: "Drill 1"},
		"td-2": {ID: "td-2", Title: "Drill 2"},
	}}
	f := &attendanceFixture{
		records:   &mockAttendanceStore{records: map[string]models.AttendanceRecord{}},
		summaries: &mockSummaryStore{rows: map[string]*models.GradeSummary{}},
		cache:     &mockGradeCache{enabled: true, entries: map[string][]byte{}},
		metrics:   &mockObserver{},
	}
	f.svc = NewAttendanceService(f.records, cadets, days, f.summaries, f.cache, f.metrics, validator.New(), zap.NewNop())
	return f
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return appErrors.FromError(err).Code
}

func TestMarkNormalizesLegacyStatus(t *testing.T) {
	f := newAttendanceFixture()

	stored, err := f.svc.Mark(context.Background(), MarkAttendanceRequest{
		CadetID:       "c-1",
		TrainingDayID: "td-1",
		Status:        "  PRESENT ",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, stored.Status)
	assert.Equal(t, 1, f.summaries.rows["c-1"].AttendancePresent)
	assert.Contains(t, f.cache.deleted, "grades:cadet:c-1")
	assert.Equal(t, 1, f.metrics.recomputes)
}

func TestMarkRejectsUnknownStatus(t *testing.T) {
	f := newAttendanceFixture()

	_, err := f.svc.Mark(context.Background(), MarkAttendanceRequest{
		CadetID:       "c-1",
		TrainingDayID: "td-1",
		Status:        "vacation",
	})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
	assert.Empty(t, f.records.records)
}

func TestMarkUnknownCadet(t *testing.T) {
	f := newAttendanceFixture()

	_, err := f.svc.Mark(context.Background(), MarkAttendanceRequest{
		CadetID:       "c-99",
		TrainingDayID: "td-1",
		Status:        "present",
	})
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}

func TestMarkUnknownTrainingDay(t *testing.T) {
	f := newAttendanceFixture()

	_, err := f.svc.Mark(context.Background(), MarkAttendanceRequest{
		CadetID:       "c-1",
		TrainingDayID: "td-99",
		Status:        "present",
	})
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}

func TestMarkOverwritesPriorStatus(t *testing.T) {
	f := newAttendanceFixture()
	ctx := context.Background()

	_, err := f.svc.Mark(ctx, MarkAttendanceRequest{CadetID: "c-1", TrainingDayID: "td-1", Status: "present"})
	require.NoError(t, err)
	require.Equal(t, 1, f.summaries.rows["c-1"].AttendancePresent)

	_, err = f.svc.Mark(ctx, MarkAttendanceRequest{CadetID: "c-1", TrainingDayID: "td-1", Status: "absent"})
	require.NoError(t, err)
	assert.Len(t, f.records.records, 1)
	assert.Equal(t, 0, f.summaries.rows["c-1"].AttendancePresent)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	f := newAttendanceFixture()
	ctx := context.Background()

	// Legacy rows carry inconsistent casing; a stale summary count must be
	// overwritten, not incremented.
	f.records.records[attKey("c-1", "td-1")] = models.AttendanceRecord{CadetID: "c-1", TrainingDayID: "td-1", Status: "Present"}
	f.records.records[attKey("c-1", "td-2")] = models.AttendanceRecord{CadetID: "c-1", TrainingDayID: "td-2", Status: " EXCUSED"}
	f.records.records[attKey("c-2", "td-1")] = models.AttendanceRecord{CadetID: "c-2", TrainingDayID: "td-1", Status: "absent"}
	f.summaries.rows["c-1"] = &models.GradeSummary{CadetID: "c-1", AttendancePresent: 99}

	count, err := f.svc.Recompute(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, f.summaries.rows["c-1"].AttendancePresent)

	count, err = f.svc.Recompute(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, f.metrics.recomputes)
}

func TestRecomputeUnknownCadet(t *testing.T) {
	f := newAttendanceFixture()

	_, err := f.svc.Recompute(context.Background(), "c-99")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
	assert.Zero(t, f.metrics.recomputes)
}

func TestAuditReturnsOnlyMismatches(t *testing.T) {
	f := newAttendanceFixture()
	f.records.audit = []models.AttendanceMismatch{
		{CadetID: "c-1", CadetName: "Reyes, Ana", StoredCount: 5, ActualCount: 5},
		{CadetID: "c-2", CadetName: "Santos, Ben", StoredCount: 3, ActualCount: 1},
	}

	mismatches, err := f.svc.AuditConsistency(context.Background())
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "c-2", mismatches[0].CadetID)
	assert.Equal(t, 1, f.metrics.auditMismatches)
}

func TestAuditConsistentRosterIsEmpty(t *testing.T) {
	f := newAttendanceFixture()
	f.records.audit = []models.AttendanceMismatch{
		{CadetID: "c-1", StoredCount: 4, ActualCount: 4},
	}

	mismatches, err := f.svc.AuditConsistency(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, mismatches)
	assert.Empty(t, mismatches)
	// An audit never repairs; the stored counts stay untouched.
	assert.Empty(t, f.summaries.rows)
}

func TestBulkMarkAtomicAbortsOnConflict(t *testing.T) {
	f := newAttendanceFixture()
	f.records.records[attKey("c-1", "td-1")] = models.AttendanceRecord{CadetID: "c-1", TrainingDayID: "td-1", Status: "present"}

	_, err := f.svc.BulkMark(context.Background(), BulkAttendanceRequest{
		TrainingDayID: "td-1",
		Entries: []BulkAttendanceEntry{
			{CadetID: "c-1", Status: "present"},
			{CadetID: "c-2", Status: "late"},
		},
	})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
	assert.Len(t, f.records.records, 1)
}

func TestBulkMarkPartialReportsConflicts(t *testing.T) {
	f := newAttendanceFixture()
	f.records.records[attKey("c-1", "td-1")] = models.AttendanceRecord{CadetID: "c-1", TrainingDayID: "td-1", Status: "present"}

	result, err := f.svc.BulkMark(context.Background(), BulkAttendanceRequest{
		TrainingDayID: "td-1",
		Mode:          string(models.BulkModePartialOnError),
		Entries: []BulkAttendanceEntry{
			{CadetID: "c-1", Status: "present"},
			{CadetID: "c-2", Status: "excused"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "c-1", result.Conflicts[0].CadetID)
	assert.Equal(t, 1, f.summaries.rows["c-2"].AttendancePresent)
	// Every cadet in the batch is reconciled, conflicted or not.
	assert.Equal(t, 2, f.metrics.recomputes)
}

func TestBulkMarkRejectsDuplicateCadet(t *testing.T) {
	f := newAttendanceFixture()

	_, err := f.svc.BulkMark(context.Background(), BulkAttendanceRequest{
		TrainingDayID: "td-1",
		Entries: []BulkAttendanceEntry{
			{CadetID: "c-1", Status: "present"},
			{CadetID: "c-1", Status: "absent"},
		},
	})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func TestBulkMarkUnknownCadetInBatch(t *testing.T) {
	f := newAttendanceFixture()

	_, err := f.svc.BulkMark(context.Background(), BulkAttendanceRequest{
		TrainingDayID: "td-1",
		Entries: []BulkAttendanceEntry{
			{CadetID: "c-1", Status: "present"},
			{CadetID: "c-99", Status: "present"},
		},
	})
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
	assert.Empty(t, f.records.records)
}

func TestHistorySortedOutput(t *testing.T) {
	f := newAttendanceFixture()
	f.records.records[attKey("c-1", "td-1")] = models.AttendanceRecord{CadetID: "c-1", TrainingDayID: "td-1", Status: "present"}
	f.records.records[attKey("c-1", "td-2")] = models.AttendanceRecord{CadetID: "c-1", TrainingDayID: "td-2", Status: "late"}
	f.records.records[attKey("c-2", "td-1")] = models.AttendanceRecord{CadetID: "c-2", TrainingDayID: "td-1", Status: "present"}

	rows, err := f.svc.History(context.Background(), "c-1", nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	ids := []string{rows[0].TrainingDayID, rows[1].TrainingDayID}
	sort.Strings(ids)
	assert.Equal(t, []string{"td-1", "td-2"}, ids)
}
