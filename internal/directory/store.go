package directory

import "context"

// Store is the entity store for patients and doctors.
//
// Error Contract:
// - Getters return sentinel.ErrNotFound when the key is absent
// - Save overwrites in place; registration-level duplicate checks live in callers
type Store interface {
	SavePatient(ctx context.Context, patient *Patient) error
	GetPatient(ctx context.Context, nida string) (*Patient, error)
	SaveDoctor(ctx context.Context, doctor *Doctor) error
	GetDoctor(ctx context.Context, doctorID string) (*Doctor, error)
	SearchPatients(ctx context.Context, match func(*Patient) bool) ([]*Patient, error)
	ListDoctors(ctx context.Context) ([]*Doctor, error)
}
