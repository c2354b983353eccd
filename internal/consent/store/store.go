package store

import (
	"context"

	"afyalink/internal/consent/models"
)

// Store persists consent rows and access requests.
//
// Error Contract:
// - Find/Get methods return sentinel.ErrNotFound when no row exists
// - Other methods return nil on success or wrapped errors on failure
//
// Consent rows are the single source of truth for access; per-party access
// sets are computed by the List queries, never stored.
type Store interface {
	SaveConsent(ctx context.Context, consent *models.Consent) error
	FindConsent(ctx context.Context, patientNIDA, doctorID string) (*models.Consent, error)
	ListConsentsByPatient(ctx context.Context, patientNIDA string) ([]*models.Consent, error)
	ListConsentsByDoctor(ctx context.Context, doctorID string) ([]*models.Consent, error)

	SaveRequest(ctx context.Context, request *models.AccessRequest) error
	GetRequest(ctx context.Context, requestID string) (*models.AccessRequest, error)
	FindPendingRequest(ctx context.Context, patientNIDA, doctorID string) (*models.AccessRequest, error)
	ListRequestsByPatient(ctx context.Context, patientNIDA string, status *models.RequestStatus) ([]*models.AccessRequest, error)
}
