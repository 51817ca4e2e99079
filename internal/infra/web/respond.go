package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"blessbox/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	respondJSON(w, r, statusFor(err), errorResponse{Error: messageFor(err)})
}

// statusFor maps domain sentinels onto HTTP statuses. Anything unmapped is a
// 500 with a generic body; the real error goes to the log, not the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrCouponNotFound),
		errors.Is(err, domain.ErrCodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrMissingField),
		errors.Is(err, domain.ErrCodeMismatch),
		errors.Is(err, domain.ErrCodeExpired):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrAlreadyCheckedIn),
		errors.Is(err, domain.ErrNotCheckedIn),
		errors.Is(err, domain.ErrAlreadyCanceled),
		errors.Is(err, domain.ErrCouponExhausted),
		errors.Is(err, domain.ErrCouponExpired),
		errors.Is(err, domain.ErrCouponPlanMismatch):
		return http.StatusConflict
	case errors.Is(err, domain.ErrLimitReached):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrRateLimited),
		errors.Is(err, domain.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	if statusFor(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
