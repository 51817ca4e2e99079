package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUnauthorized       = errors.New("authentication required")
	ErrForbidden          = errors.New("access denied")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid query execution context")

	// Coupon errors
	ErrCouponNotFound     = errors.New("coupon not found")
	ErrCouponExpired      = errors.New("coupon has expired")
	ErrCouponExhausted    = errors.New("coupon usage limit reached")
	ErrCouponPlanMismatch = errors.New("coupon not applicable to this plan")

	// Registration / check-in errors
	ErrAlreadyCheckedIn = errors.New("registration already checked in")
	ErrNotCheckedIn     = errors.New("registration is not checked in")
	ErrLimitReached     = errors.New("plan registration limit reached")
	ErrMissingField     = errors.New("required field missing")

	// Subscription errors
	ErrNotCanceling    = errors.New("subscription is not in canceling state")
	ErrAlreadyCanceled = errors.New("subscription already canceled")

	// Verification code errors
	ErrCodeNotFound    = errors.New("verification code not found")
	ErrCodeExpired     = errors.New("verification code expired")
	ErrCodeMismatch    = errors.New("verification code does not match")
	ErrTooManyAttempts = errors.New("too many verification attempts")
	ErrRateLimited     = errors.New("rate limit exceeded")
)
