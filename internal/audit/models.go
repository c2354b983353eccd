package audit

import "time"

// Event is emitted from domain logic to capture consent-lifecycle transitions.
// Keep it transport-agnostic so stores and sinks can fan out. The consent
// store keeps only the latest row per (patient, doctor) pair; the audit trail
// is where transition history lives.
type Event struct {
	Timestamp   time.Time
	PatientNIDA string
	DoctorID    string
	RequestID   string
	Action      string
	Decision    string
	Reason      string
}

// Audit event actions
const (
	ActionAccessRequested   = "access_requested"
	ActionRequestApproved   = "request_approved"
	ActionRequestRejected   = "request_rejected"
	ActionConsentGranted    = "consent_granted"
	ActionConsentRevoked    = "consent_revoked"
	ActionRecordAdded       = "record_added"
	ActionRecordDeactivated = "record_deactivated"
	ActionAccessChecked     = "access_checked"
)

// Audit event decisions
const (
	DecisionPending  = "pending"
	DecisionGranted  = "granted"
	DecisionRejected = "rejected"
	DecisionRevoked  = "revoked"
	DecisionDenied   = "denied"
)

// Audit event reasons
const (
	ReasonPatientInitiated = "patient_initiated"
	ReasonDoctorInitiated  = "doctor_initiated"
	ReasonAdminInitiated   = "admin_initiated"
)
