package directory

import (
	"strings"

	dErrors "afyalink/pkg/domain-errors"
)

// MinNIDALength is the shortest national ID accepted at intake.
const MinNIDALength = 15

// Patient is the owning entity for health records. The national ID (NIDA) is
// the primary key; aggregate stats are computed from the consent and request
// stores on read, never stored here.
type Patient struct {
	NIDA   string
	ID     string // display identifier, e.g. PAT001
	Name   string
	Email  string
	Wallet string // wallet-style external identifier
}

// Doctor is a clinician who may be granted access to patient records.
type Doctor struct {
	ID        string
	Name      string
	Specialty string
	Facility  string
}

// NewPatient validates intake invariants before a patient enters the store.
func NewPatient(nida, id, name, email, wallet string) (*Patient, error) {
	if err := ValidateNIDA(nida); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "patient name required")
	}
	return &Patient{NIDA: nida, ID: id, Name: name, Email: email, Wallet: wallet}, nil
}

// ValidateNIDA enforces the national ID format: non-empty, numeric, with a
// minimum length.
func ValidateNIDA(nida string) error {
	if nida == "" {
		return dErrors.New(dErrors.CodeValidation, "nida required")
	}
	if len(nida) < MinNIDALength {
		return dErrors.New(dErrors.CodeValidation, "nida too short")
	}
	if strings.IndexFunc(nida, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return dErrors.New(dErrors.CodeValidation, "nida must be numeric")
	}
	return nil
}
