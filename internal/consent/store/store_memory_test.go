package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afyalink/internal/consent/models"
	"afyalink/pkg/platform/sentinel"
)

func TestConsentUpsertKeepsPairUnique(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	c, err := models.NewConsent("199012345678901", "DOC001", now, now.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.SaveConsent(ctx, c))

	// Overwrite the same pair
	c2, err := models.NewConsent("199012345678901", "DOC001", now.Add(time.Minute), now.Add(2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.SaveConsent(ctx, c2))

	byPatient, err := s.ListConsentsByPatient(ctx, "199012345678901")
	require.NoError(t, err)
	require.Len(t, byPatient, 1, "composite key must stay unique")
	assert.Equal(t, c2.ExpiresAt, byPatient[0].ExpiresAt)

	fetched, err := s.FindConsent(ctx, "199012345678901", "DOC001")
	require.NoError(t, err)

	// Copy integrity
	fetched.DoctorID = "DOC999"
	again, err := s.FindConsent(ctx, "199012345678901", "DOC001")
	require.NoError(t, err)
	assert.Equal(t, "DOC001", again.DoctorID)
}

func TestFindConsentNotFound(t *testing.T) {
	s := New()
	_, err := s.FindConsent(context.Background(), "199012345678901", "DOC001")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPendingRequestIndex(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	req := &models.AccessRequest{
		ID:          "req_1",
		PatientNIDA: "199012345678901",
		DoctorID:    "DOC002",
		Purpose:     "Second opinion",
		Status:      models.RequestPending,
		RequestedAt: now,
	}
	require.NoError(t, s.SaveRequest(ctx, req))

	found, err := s.FindPendingRequest(ctx, "199012345678901", "DOC002")
	require.NoError(t, err)
	assert.Equal(t, "req_1", found.ID)

	// Deciding the request clears the pending index
	require.NoError(t, req.Decide(models.RequestApproved, now))
	require.NoError(t, s.SaveRequest(ctx, req))

	_, err = s.FindPendingRequest(ctx, "199012345678901", "DOC002")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	stored, err := s.GetRequest(ctx, "req_1")
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, stored.Status)
}

func TestListRequestsByPatientFilters(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Now()

	for i, r := range []*models.AccessRequest{
		{ID: "req_1", PatientNIDA: "199012345678901", DoctorID: "DOC001", Status: models.RequestRejected},
		{ID: "req_2", PatientNIDA: "199012345678901", DoctorID: "DOC002", Status: models.RequestPending},
		{ID: "req_3", PatientNIDA: "199087654321098", DoctorID: "DOC002", Status: models.RequestPending},
	} {
		r.RequestedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, s.SaveRequest(ctx, r))
	}

	pending := models.RequestPending
	got, err := s.ListRequestsByPatient(ctx, "199012345678901", &pending)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "req_2", got[0].ID)

	all, err := s.ListRequestsByPatient(ctx, "199012345678901", nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
