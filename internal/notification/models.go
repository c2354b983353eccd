package notification

import "time"

// Notification event types, one per consent-lifecycle transition plus record
// creation.
const (
	TypeAccessRequest  = "access_request"
	TypeAccessGranted  = "access_granted"
	TypeAccessRejected = "access_rejected"
	TypeAccessRevoked  = "access_revoked"
	TypeNewRecord      = "new_record"
)

// Notification is one entry in a recipient's inbox. Append-only except for
// the read flag.
type Notification struct {
	ID        string
	Type      string
	Title     string
	Message   string
	Read      bool
	CreatedAt time.Time
	Payload   map[string]string // related keys, e.g. request_id, doctor_id
}
