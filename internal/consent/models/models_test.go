package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "afyalink/pkg/domain-errors"
)

func TestNewConsentInvariants(t *testing.T) {
	now := time.Now()
	expiry := now.Add(365 * 24 * time.Hour)

	_, err := NewConsent("", "DOC001", now, expiry)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewConsent("199012345678901", "", now, expiry)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewConsent("199012345678901", "DOC001", now, now.Add(-time.Hour))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	c, err := NewConsent("199012345678901", "DOC001", now, expiry)
	require.NoError(t, err)
	assert.Equal(t, StatusGranted, c.Status)
}

func TestConsentIsActiveEnforcesExpiry(t *testing.T) {
	now := time.Now()
	c := Consent{
		PatientNIDA: "199012345678901",
		DoctorID:    "DOC001",
		Status:      StatusGranted,
		GrantedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}

	assert.True(t, c.IsActive(now))
	assert.False(t, c.IsActive(now.Add(2*time.Hour)), "expiry is enforced at read time")
	assert.Equal(t, StatusExpired, c.ComputeStatus(now.Add(2*time.Hour)))

	revokedAt := now.Add(time.Minute)
	c.Status = StatusRevoked
	c.RevokedAt = &revokedAt
	assert.False(t, c.IsActive(now))
	assert.Equal(t, StatusRevoked, c.ComputeStatus(now))
}

func TestAccessRequestDecideIsTerminal(t *testing.T) {
	now := time.Now()
	req := AccessRequest{
		ID:          "req_1",
		PatientNIDA: "199012345678901",
		DoctorID:    "DOC002",
		Purpose:     "Second opinion",
		Status:      RequestPending,
		RequestedAt: now,
	}

	require.NoError(t, req.Decide(RequestApproved, now))
	assert.Equal(t, RequestApproved, req.Status)
	require.NotNil(t, req.DecidedAt)

	err := req.Decide(RequestRejected, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState), "approved is terminal")
}

func TestAccessRequestDecideRejectsBogusStatus(t *testing.T) {
	req := AccessRequest{Status: RequestPending}
	err := req.Decide(RequestPending, time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}
