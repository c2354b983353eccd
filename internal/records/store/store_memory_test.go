package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afyalink/internal/records/models"
	"afyalink/pkg/platform/sentinel"
)

func TestSaveAndGetCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	record := &models.HealthRecord{
		ID:          "rec_1",
		PatientNIDA: "199012345678901",
		Type:        models.TypeLabResults,
		Title:       "Blood Test Results",
		SealedData:  []byte{1, 2, 3},
		CreatedAt:   time.Now(),
	}
	require.NoError(t, s.Save(ctx, record))

	got, err := s.Get(ctx, "rec_1")
	require.NoError(t, err)
	got.SealedData[0] = 0xff
	got.Title = "mutated"

	again, err := s.Get(ctx, "rec_1")
	require.NoError(t, err)
	assert.Equal(t, byte(1), again.SealedData[0], "stored payload must not alias returned copies")
	assert.Equal(t, "Blood Test Results", again.Title)
}

func TestGetUnknownNotFound(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), "rec_missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestListByPatientNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"rec_1", "rec_2", "rec_3"} {
		require.NoError(t, s.Save(ctx, &models.HealthRecord{
			ID:          id,
			PatientNIDA: "199012345678901",
			Type:        models.TypeConsultation,
			Title:       "Visit",
			Active:      true,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.Save(ctx, &models.HealthRecord{
		ID:          "rec_other",
		PatientNIDA: "199087654321098",
		Type:        models.TypeXRay,
		Title:       "Chest X-Ray",
		Active:      true,
		CreatedAt:   base,
	}))

	records, err := s.ListByPatient(ctx, "199012345678901")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "rec_3", records[0].ID)
	assert.Equal(t, "rec_1", records[2].ID)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestListingsSkipDeactivatedRecords(t *testing.T) {
	s := New()
	ctx := context.Background()

	active := &models.HealthRecord{
		ID:          "rec_active",
		PatientNIDA: "199012345678901",
		Type:        models.TypeLabResults,
		Title:       "Lipid Panel",
		Active:      true,
		CreatedAt:   time.Now(),
	}
	inactive := &models.HealthRecord{
		ID:          "rec_gone",
		PatientNIDA: "199012345678901",
		Type:        models.TypeConsultation,
		Title:       "Old Visit",
		CreatedAt:   time.Now(),
	}
	require.NoError(t, s.Save(ctx, active))
	require.NoError(t, s.Save(ctx, inactive))

	records, err := s.ListByPatient(ctx, "199012345678901")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rec_active", records[0].ID)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// Get still reaches the deactivated row
	got, err := s.Get(ctx, "rec_gone")
	require.NoError(t, err)
	assert.False(t, got.Active)
}
