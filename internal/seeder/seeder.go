// Package seeder loads the demo dataset so a fresh deployment has parties,
// consents, and records to explore.
package seeder

import (
	"context"
	"log/slog"

	"afyalink/internal/auth"
	consentmodels "afyalink/internal/consent/models"
	"afyalink/internal/directory"
	recordsmodels "afyalink/internal/records/models"
	dErrors "afyalink/pkg/domain-errors"
)

// ConsentService is the slice of the consent lifecycle the seeder drives.
type ConsentService interface {
	GrantConsent(ctx context.Context, patientNIDA, doctorID string, expiryDays int) (*consentmodels.Consent, error)
	RequestAccess(ctx context.Context, patientNIDA, doctorID, purpose string) (*consentmodels.AccessRequest, error)
}

// RecordService files demo records through the normal sealing path.
type RecordService interface {
	AddRecord(ctx context.Context, principal *auth.Principal, patientNIDA string, rtype recordsmodels.RecordType, title, description string, payload []byte) (*recordsmodels.HealthRecord, error)
}

// Seeder populates the directory, consents, and records with demo data.
type Seeder struct {
	directory directory.Store
	consent   ConsentService
	records   RecordService
	logger    *slog.Logger
}

func New(dir directory.Store, consent ConsentService, records RecordService, logger *slog.Logger) *Seeder {
	return &Seeder{directory: dir, consent: consent, records: records, logger: logger}
}

const (
	johnNIDA = "199012345678901"
	maryNIDA = "199087654321098"
)

// Seed loads the demo dataset: two patients, two doctors, a standing consent
// from John to Dr. Sarah with a handful of records behind it, and a pending
// access request from Dr. Ahmed.
func (s *Seeder) Seed(ctx context.Context) error {
	if err := s.seedParties(ctx); err != nil {
		return err
	}

	if _, err := s.consent.GrantConsent(ctx, johnNIDA, "DOC001", 365); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed consent")
	}

	if err := s.seedRecords(ctx); err != nil {
		return err
	}

	if _, err := s.consent.RequestAccess(ctx, johnNIDA, "DOC002", "Second opinion on lab results"); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed access request")
	}

	s.logger.Info("demo data seeded",
		"patients", 2,
		"doctors", 2,
	)
	return nil
}

func (s *Seeder) seedParties(ctx context.Context) error {
	patients := []*directory.Patient{
		{NIDA: johnNIDA, ID: "PAT001", Name: "John Michael", Email: "john.michael@example.com"},
		{NIDA: maryNIDA, ID: "PAT002", Name: "Mary Johnson", Email: "mary.johnson@example.com"},
	}
	for _, patient := range patients {
		validated, err := directory.NewPatient(patient.NIDA, patient.ID, patient.Name, patient.Email, patient.Wallet)
		if err != nil {
			return err
		}
		if err := s.directory.SavePatient(ctx, validated); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed patient")
		}
	}

	doctors := []*directory.Doctor{
		{ID: "DOC001", Name: "Dr. Sarah K.", Specialty: "Internal Medicine", Facility: "Muhimbili National Hospital"},
		{ID: "DOC002", Name: "Dr. Ahmed M.", Specialty: "Radiology", Facility: "Aga Khan Hospital"},
	}
	for _, doctor := range doctors {
		if err := s.directory.SaveDoctor(ctx, doctor); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed doctor")
		}
	}
	return nil
}

func (s *Seeder) seedRecords(ctx context.Context) error {
	sarah := &auth.Principal{Subject: "DOC001", Role: auth.RoleDoctor}
	admin := &auth.Principal{Subject: "seed", Role: auth.RoleAdmin}

	type demoRecord struct {
		principal   *auth.Principal
		patientNIDA string
		rtype       recordsmodels.RecordType
		title       string
		description string
		payload     string
	}
	records := []demoRecord{
		{sarah, johnNIDA, recordsmodels.TypeLabResults, "Blood Test Results",
			"Complete blood count", `{"hemoglobin":"13.5 g/dL","wbc":"6.2 K/uL"}`},
		{sarah, johnNIDA, recordsmodels.TypeXRay, "Chest X-Ray",
			"Routine screening", `{"impression":"No acute cardiopulmonary findings"}`},
		{sarah, johnNIDA, recordsmodels.TypeConsultation, "General Consultation",
			"Follow-up visit", `{"notes":"Patient recovering well, continue current medication"}`},
		{admin, maryNIDA, recordsmodels.TypeVaccination, "Tetanus Booster",
			"Routine immunization", `{"vaccine":"Td","lot":"TT-2309"}`},
		{admin, maryNIDA, recordsmodels.TypePrescription, "Amoxicillin Course",
			"Respiratory infection", `{"drug":"Amoxicillin 500mg","duration":"7 days"}`},
	}

	for _, record := range records {
		if _, err := s.records.AddRecord(ctx, record.principal, record.patientNIDA,
			record.rtype, record.title, record.description, []byte(record.payload)); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed record")
		}
	}
	return nil
}
