package store

import (
	"context"

	"afyalink/internal/records/models"
)

// Store defines the persistence interface for health records.
// Error Contract:
// - Get returns sentinel.ErrNotFound when no record exists
// - Other methods return nil on success or wrapped errors on failure
// ListByPatient and ListAll return active records only; Get still returns
// deactivated rows so soft delete and audits can reach them.
type Store interface {
	Save(ctx context.Context, record *models.HealthRecord) error
	Get(ctx context.Context, recordID string) (*models.HealthRecord, error)
	ListByPatient(ctx context.Context, patientNIDA string) ([]*models.HealthRecord, error)
	ListAll(ctx context.Context) ([]*models.HealthRecord, error)
}
