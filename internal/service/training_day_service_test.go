package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rotc-portal/grading-api/internal/models"
	appErrors "github.com/rotc-portal/grading-api/pkg/errors"
)

type mockScheduleStore struct {
	days   map[string]*models.TrainingDay
	nextID int
}

func (m *mockScheduleStore) List(_ context.Context, _ models.TrainingDayFilter) ([]models.TrainingDay, int, error) {
	days := make([]models.TrainingDay, 0, len(m.days))
	for _, day := range m.days {
		days = append(days, *day)
	}
	return days, len(days), nil
}

func (m *mockScheduleStore) FindByID(_ context.Context, id string) (*models.TrainingDay, error) {
	day, ok := m.days[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *day
	return &clone, nil
}

func (m *mockScheduleStore) Create(_ context.Context, day *models.TrainingDay) error {
	for _, existing := range m.days {
		if existing.Date.Equal(day.Date) {
			return &pq.Error{Code: pgUniqueViolation, Constraint: "training_days_date_key"}
		}
	}
	m.nextID++
	day.ID = fmt.Sprintf("td-%d", m.nextID)
	clone := *day
	m.days[day.ID] = &clone
	return nil
}

func (m *mockScheduleStore) Update(_ context.Context, day *models.TrainingDay) error {
	for id, existing := range m.days {
		if id != day.ID && existing.Date.Equal(day.Date) {
			return &pq.Error{Code: pgUniqueViolation, Constraint: "training_days_date_key"}
		}
	}
	clone := *day
	m.days[day.ID] = &clone
	return nil
}

func (m *mockScheduleStore) Delete(_ context.Context, id string) error {
	delete(m.days, id)
	return nil
}

func newTrainingDayFixture() (*TrainingDayService, *mockScheduleStore, *mockAttendanceStore) {
	schedule := &mockScheduleStore{days: map[string]*models.TrainingDay{}}
	records := &mockAttendanceStore{records: map[string]models.AttendanceRecord{}}
	svc := NewTrainingDayService(schedule, records, validator.New(), zap.NewNop())
	return svc, schedule, records
}

func TestTrainingDayCreateSchedulesSession(t *testing.T) {
	svc, schedule, _ := newTrainingDayFixture()

	day, err := svc.Create(context.Background(), TrainingDayRequest{
		Date:  time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC),
		Title: "Drill and Ceremonies",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, day.ID)
	assert.Len(t, schedule.days, 1)
}

func TestTrainingDayCreateRejectsDuplicateDate(t *testing.T) {
	svc, _, _ := newTrainingDayFixture()
	ctx := context.Background()
	date := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)

	_, err := svc.Create(ctx, TrainingDayRequest{Date: date, Title: "Drill and Ceremonies"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, TrainingDayRequest{Date: date, Title: "Map Reading"})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
}

func TestTrainingDayCreateRequiresTitle(t *testing.T) {
	svc, _, _ := newTrainingDayFixture()

	_, err := svc.Create(context.Background(), TrainingDayRequest{
		Date: time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC),
	})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func TestTrainingDayDeleteRefusesWithAttendance(t *testing.T) {
	svc, schedule, records := newTrainingDayFixture()
	ctx := context.Background()

	day, err := svc.Create(ctx, TrainingDayRequest{
		Date:  time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC),
		Title: "Drill and Ceremonies",
	})
	require.NoError(t, err)
	records.records[attKey("c-1", day.ID)] = models.AttendanceRecord{CadetID: "c-1", TrainingDayID: day.ID, Status: "present"}

	err = svc.Delete(ctx, day.ID)
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
	assert.Len(t, schedule.days, 1)
}

func TestTrainingDayDeleteWithoutAttendance(t *testing.T) {
	svc, schedule, _ := newTrainingDayFixture()
	ctx := context.Background()

	day, err := svc.Create(ctx, TrainingDayRequest{
		Date:  time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC),
		Title: "Map Reading",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, day.ID))
	assert.Empty(t, schedule.days)
}

func TestTrainingDayGetUnknown(t *testing.T) {
	svc, _, _ := newTrainingDayFixture()

	_, err := svc.Get(context.Background(), "td-404")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}
