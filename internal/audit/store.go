package audit

import "context"

// Store persists audit events. Events are append-only; there is no update or
// delete surface.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByPatient(ctx context.Context, patientNIDA string) ([]Event, error)
}
