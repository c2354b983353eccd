package testutil

import (
	"time"

	consentmodels "afyalink/internal/consent/models"
	"afyalink/internal/directory"
)

// TestParties provides convenient pre-built demo identities for tests.
// Use these for deterministic test data.
var TestParties = struct {
	JohnNIDA string
	MaryNIDA string
	SarahID  string
	AhmedID  string
}{
	JohnNIDA: "199012345678901",
	MaryNIDA: "199087654321098",
	SarahID:  "DOC001",
	AhmedID:  "DOC002",
}

// PatientBuilder provides a fluent interface for building test patients.
type PatientBuilder struct {
	patient *directory.Patient
}

// NewPatientBuilder creates a new PatientBuilder with sensible defaults.
func NewPatientBuilder() *PatientBuilder {
	return &PatientBuilder{
		patient: &directory.Patient{
			NIDA:  TestParties.JohnNIDA,
			ID:    "PAT001",
			Name:  "John Michael",
			Email: "john.michael@example.com",
		},
	}
}

func (b *PatientBuilder) WithNIDA(nida string) *PatientBuilder {
	b.patient.NIDA = nida
	return b
}

func (b *PatientBuilder) WithID(id string) *PatientBuilder {
	b.patient.ID = id
	return b
}

func (b *PatientBuilder) WithName(name string) *PatientBuilder {
	b.patient.Name = name
	return b
}

func (b *PatientBuilder) Build() *directory.Patient {
	cp := *b.patient
	return &cp
}

// DoctorBuilder provides a fluent interface for building test doctors.
type DoctorBuilder struct {
	doctor *directory.Doctor
}

// NewDoctorBuilder creates a new DoctorBuilder with sensible defaults.
func NewDoctorBuilder() *DoctorBuilder {
	return &DoctorBuilder{
		doctor: &directory.Doctor{
			ID:        TestParties.SarahID,
			Name:      "Dr. Sarah K.",
			Specialty: "Internal Medicine",
			Facility:  "Muhimbili National Hospital",
		},
	}
}

func (b *DoctorBuilder) WithID(id string) *DoctorBuilder {
	b.doctor.ID = id
	return b
}

func (b *DoctorBuilder) WithSpecialty(specialty string) *DoctorBuilder {
	b.doctor.Specialty = specialty
	return b
}

func (b *DoctorBuilder) Build() *directory.Doctor {
	cp := *b.doctor
	return &cp
}

// ConsentBuilder provides a fluent interface for building consent rows in a
// chosen lifecycle state.
type ConsentBuilder struct {
	consent *consentmodels.Consent
}

// NewConsentBuilder creates a granted consent between John and Dr. Sarah,
// valid for a year.
func NewConsentBuilder() *ConsentBuilder {
	now := time.Now()
	return &ConsentBuilder{
		consent: &consentmodels.Consent{
			PatientNIDA: TestParties.JohnNIDA,
			DoctorID:    TestParties.SarahID,
			Status:      consentmodels.StatusGranted,
			GrantedAt:   now,
			ExpiresAt:   now.Add(365 * 24 * time.Hour),
		},
	}
}

func (b *ConsentBuilder) WithPair(patientNIDA, doctorID string) *ConsentBuilder {
	b.consent.PatientNIDA = patientNIDA
	b.consent.DoctorID = doctorID
	return b
}

func (b *ConsentBuilder) Revoked(at time.Time) *ConsentBuilder {
	b.consent.Status = consentmodels.StatusRevoked
	b.consent.RevokedAt = &at
	return b
}

func (b *ConsentBuilder) Expired() *ConsentBuilder {
	b.consent.GrantedAt = time.Now().Add(-48 * time.Hour)
	b.consent.ExpiresAt = time.Now().Add(-24 * time.Hour)
	return b
}

func (b *ConsentBuilder) Build() *consentmodels.Consent {
	cp := *b.consent
	return &cp
}
