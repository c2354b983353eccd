package models

import (
	"time"

	dErrors "afyalink/pkg/domain-errors"
)

// RecordType classifies a health record.
type RecordType string

const (
	TypeLabResults   RecordType = "lab_results"
	TypeXRay         RecordType = "xray"
	TypeConsultation RecordType = "consultation"
	TypePrescription RecordType = "prescription"
	TypeVaccination  RecordType = "vaccination"
	TypeSurgery      RecordType = "surgery"
)

// Valid reports whether the record type is one the system knows.
func (t RecordType) Valid() bool {
	switch t {
	case TypeLabResults, TypeXRay, TypeConsultation, TypePrescription, TypeVaccination, TypeSurgery:
		return true
	}
	return false
}

// HealthRecord is a clinical document owned by a patient. The clinical
// payload is sealed at rest; Fingerprint is the SHA-256 of the sealed bytes
// and TxID the ledger transaction anchoring it. Records are immutable after
// creation except for Active: deactivation soft-deletes the record, dropping
// it from every listing while the row and its ledger anchor stay put.
type HealthRecord struct {
	ID          string
	PatientNIDA string
	DoctorID    string
	Facility    string
	Type        RecordType
	Title       string
	Description string
	SealedData  []byte
	Fingerprint string
	TxID        string
	Active      bool
	CreatedAt   time.Time
}

// NewHealthRecord validates intake invariants before a record enters the
// store.
func NewHealthRecord(id, patientNIDA, doctorID string, rtype RecordType, title string) (*HealthRecord, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "record id required")
	}
	if patientNIDA == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "patient nida required")
	}
	if !rtype.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown record type")
	}
	if title == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "record title required")
	}
	return &HealthRecord{
		ID:          id,
		PatientNIDA: patientNIDA,
		DoctorID:    doctorID,
		Type:        rtype,
		Title:       title,
		Active:      true,
		CreatedAt:   time.Now(),
	}, nil
}

// VerificationStatus annotates how a record's ledger anchor checked out.
type VerificationStatus string

const (
	VerificationVerified   VerificationStatus = "verified"
	VerificationUnverified VerificationStatus = "unverified"
)

// RecordView is a HealthRecord annotated with the outcome of ledger
// verification at read time. Verification never blocks a read; a ledger
// failure degrades the view to unverified.
type RecordView struct {
	*HealthRecord
	Verification VerificationStatus
}
