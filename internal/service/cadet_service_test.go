package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rotc-portal/grading-api/internal/models"
	appErrors "github.com/rotc-portal/grading-api/pkg/errors"
)

type mockRosterStore struct {
	cadets map[string]*models.Cadet
	nextID int
}

func (m *mockRosterStore) List(_ context.Context, _ models.CadetFilter) ([]models.Cadet, int, error) {
	cadets := make([]models.Cadet, 0, len(m.cadets))
	for _, cadet := range m.cadets {
		cadets = append(cadets, *cadet)
	}
	return cadets, len(cadets), nil
}

func (m *mockRosterStore) FindByID(_ context.Context, id string) (*models.Cadet, error) {
	cadet, ok := m.cadets[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *cadet
	return &clone, nil
}

func (m *mockRosterStore) Exists(_ context.Context, studentNumber, excludeID string) (bool, error) {
	for id, cadet := range m.cadets {
		if cadet.StudentNumber == studentNumber && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRosterStore) Create(_ context.Context, cadet *models.Cadet) error {
	m.nextID++
	cadet.ID = fmt.Sprintf("c-%d", m.nextID)
	clone := *cadet
	m.cadets[cadet.ID] = &clone
	return nil
}

func (m *mockRosterStore) Update(_ context.Context, cadet *models.Cadet) error {
	clone := *cadet
	m.cadets[cadet.ID] = &clone
	return nil
}

func (m *mockRosterStore) Archive(_ context.Context, id string) error {
	cadet, ok := m.cadets[id]
	if !ok {
		return sql.ErrNoRows
	}
	cadet.Active = false
	return nil
}

func newCadetFixture() (*CadetService, *mockRosterStore, *mockGradeCache) {
	roster := &mockRosterStore{cadets: map[string]*models.Cadet{}}
	cache := &mockGradeCache{enabled: true, entries: map[string][]byte{}}
	svc := NewCadetService(roster, cache, validator.New(), zap.NewNop())
	return svc, roster, cache
}

func TestCadetCreateEnrolls(t *testing.T) {
	svc, roster, _ := newCadetFixture()

	cadet, err := svc.Create(context.Background(), CreateCadetRequest{
		StudentNumber: "2024-0001",
		FullName:      "Reyes, Ana",
		Unit:          "1st Platoon",
		Course:        "BS Civil Engineering",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, cadet.ID)
	assert.True(t, cadet.Active)
	assert.Len(t, roster.cadets, 1)
}

func TestCadetCreateRejectsDuplicateStudentNumber(t *testing.T) {
	svc, _, _ := newCadetFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateCadetRequest{StudentNumber: "2024-0001", FullName: "Reyes, Ana", Unit: "1st Platoon"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateCadetRequest{StudentNumber: "2024-0001", FullName: "Santos, Ben", Unit: "2nd Platoon"})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
}

func TestCadetCreateRequiresUnit(t *testing.T) {
	svc, _, _ := newCadetFixture()

	_, err := svc.Create(context.Background(), CreateCadetRequest{StudentNumber: "2024-0001", FullName: "Reyes, Ana"})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func TestCadetUpdateKeepsStudentNumberForSelf(t *testing.T) {
	svc, _, _ := newCadetFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateCadetRequest{StudentNumber: "2024-0001", FullName: "Reyes, Ana", Unit: "1st Platoon"})
	require.NoError(t, err)

	// Re-submitting the cadet's own student number is not a conflict.
	updated, err := svc.Update(ctx, created.ID, UpdateCadetRequest{StudentNumber: "2024-0001", FullName: "Reyes, Ana Marie", Unit: "1st Platoon"})
	require.NoError(t, err)
	assert.Equal(t, "Reyes, Ana Marie", updated.FullName)
}

func TestCadetArchiveSoftDeletesAndInvalidates(t *testing.T) {
	svc, roster, cache := newCadetFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateCadetRequest{StudentNumber: "2024-0001", FullName: "Reyes, Ana", Unit: "1st Platoon"})
	require.NoError(t, err)

	require.NoError(t, svc.Archive(ctx, created.ID))
	assert.False(t, roster.cadets[created.ID].Active)
	assert.Contains(t, cache.deleted, "grades:cadet:"+created.ID)
}

func TestCadetArchiveUnknown(t *testing.T) {
	svc, _, _ := newCadetFixture()

	err := svc.Archive(context.Background(), "c-404")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}
