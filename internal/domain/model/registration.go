package model

import (
	"time"
)

type TokenStatus string

const (
	TokenStatusActive TokenStatus = "active"
	TokenStatusUsed   TokenStatus = "used"
)

// Registration is one attendee submission against a QR code set. The
// check-in token is a bearer capability: any holder may check in or undo
// without a session. Mutated only by check-in/undo; deleted only by an
// explicit admin delete.
type Registration struct {
	ID           string // UUID
	QRCodeSetID  string
	QRCodeID     string
	Data         map[string]string // opaque key/value form data
	RegisteredAt time.Time
	CheckInToken string // unique bearer string
	TokenStatus  TokenStatus
	CheckedInAt  *time.Time
	CheckedInBy  string
}

// CheckedIn reports whether the registration has been checked in.
func (r *Registration) CheckedIn() bool {
	return r.CheckedInAt != nil
}
