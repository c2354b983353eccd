package models

import (
	"time"

	dErrors "afyalink/pkg/domain-errors"
)

// ConsentStatus is the stored lifecycle state of a consent row.
type ConsentStatus string

const (
	StatusGranted ConsentStatus = "granted"
	StatusRevoked ConsentStatus = "revoked"
	// StatusExpired is never stored; it is computed from the expiry timestamp.
	StatusExpired ConsentStatus = "expired"
)

// Consent captures a patient's authorization for a specific doctor to view
// their records.
//
// # Scoping Invariant
//
// A consent row is ALWAYS scoped by (PatientNIDA, DoctorID). The combination
// is unique: each pair has at most one logical consent. Re-granting after
// revocation overwrites the same row; transition history lives in the audit
// trail, not here.
type Consent struct {
	PatientNIDA string
	DoctorID    string
	Status      ConsentStatus
	GrantedAt   time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time
}

// NewConsent creates a granted Consent with domain invariant checks.
func NewConsent(patientNIDA, doctorID string, grantedAt, expiresAt time.Time) (*Consent, error) {
	if patientNIDA == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "patient nida required")
	}
	if doctorID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "doctor id required")
	}
	if grantedAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "grant time required")
	}
	if !expiresAt.After(grantedAt) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "expiry must be after grant time")
	}
	return &Consent{
		PatientNIDA: patientNIDA,
		DoctorID:    doctorID,
		Status:      StatusGranted,
		GrantedAt:   grantedAt,
		ExpiresAt:   expiresAt,
	}, nil
}

// IsActive returns true when consent is currently valid. Expiry is enforced
// here, at read time; there is no background sweep.
func (c Consent) IsActive(now time.Time) bool {
	if c.Status != StatusGranted {
		return false
	}
	return now.Before(c.ExpiresAt)
}

// ComputeStatus reports the consent lifecycle state at the provided time.
func (c Consent) ComputeStatus(now time.Time) ConsentStatus {
	if c.Status == StatusRevoked {
		return StatusRevoked
	}
	if !now.Before(c.ExpiresAt) {
		return StatusExpired
	}
	return StatusGranted
}

// RequestStatus is the lifecycle state of an access request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// AccessRequest is a doctor-initiated solicitation for consent, awaiting the
// patient's decision. Approving or rejecting is terminal; a rejected request
// does not block a later new request for the same pair.
type AccessRequest struct {
	ID          string
	PatientNIDA string
	DoctorID    string
	Purpose     string
	Status      RequestStatus
	RequestedAt time.Time
	DecidedAt   *time.Time
}

// IsPending reports whether the request still awaits a decision.
func (r AccessRequest) IsPending() bool {
	return r.Status == RequestPending
}

// Decide transitions a pending request to approved or rejected. It is the
// only legal transition out of pending and may happen at most once.
func (r *AccessRequest) Decide(status RequestStatus, at time.Time) error {
	if r.Status != RequestPending {
		return dErrors.New(dErrors.CodeInvalidState, "request already "+string(r.Status))
	}
	if status != RequestApproved && status != RequestRejected {
		return dErrors.New(dErrors.CodeInvariantViolation, "decision must be approved or rejected")
	}
	r.Status = status
	r.DecidedAt = &at
	return nil
}
