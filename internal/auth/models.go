package auth

// Role is the access level of an authenticated principal.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role is one the system knows.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// Principal is the authenticated identity attached to a request. Subject is
// the display identifier (PAT001, DOC001, or an admin username); NIDA is set
// only for patients.
type Principal struct {
	Subject string
	Role    Role
	NIDA    string
}

// IsPatient reports whether the principal acts as a patient.
func (p Principal) IsPatient() bool { return p.Role == RolePatient }

// IsDoctor reports whether the principal acts as a doctor.
func (p Principal) IsDoctor() bool { return p.Role == RoleDoctor }

// IsAdmin reports whether the principal acts as an administrator.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
