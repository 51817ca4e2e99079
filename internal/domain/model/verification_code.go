package model

import (
	"time"
)

// VerificationCode is an ephemeral 6-digit email verification code.
// Each new send supersedes the previous code for the address; a successful
// verify consumes it.
type VerificationCode struct {
	Email     string
	Code      string // 6 digits
	CreatedAt time.Time
	ExpiresAt time.Time
	Verified  bool
	Attempts  int
}

// Expired reports whether the code is past its expiry at now.
func (v *VerificationCode) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}
