package web

import (
	"io"
	"net/http"
	"time"

	"blessbox/internal/domain/model"
	"blessbox/internal/infra/metrics"
)

type subscriptionDTO struct {
	ID                string     `json:"id"`
	PlanType          string     `json:"planType"`
	Status            string     `json:"status"`
	RegistrationLimit int        `json:"registrationLimit"`
	RegistrationCount int        `json:"registrationCount"`
	CurrentPeriodEnd  *time.Time `json:"currentPeriodEnd,omitempty"`
}

func toSubscriptionDTO(sub *model.Subscription) *subscriptionDTO {
	return &subscriptionDTO{
		ID:                sub.ID,
		PlanType:          string(sub.PlanType),
		Status:            string(sub.Status),
		RegistrationLimit: sub.RegistrationLimit,
		RegistrationCount: sub.RegistrationCount,
		CurrentPeriodEnd:  sub.CurrentPeriodEnd,
	}
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}
	stats, err := s.usageUC.Stats(r.Context(), sess.OrganizationID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, stats)
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}
	sub, err := s.subUC.Get(r.Context(), sess.OrganizationID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toSubscriptionDTO(sub))
}

func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}
	sub, err := s.subUC.Cancel(r.Context(), sess.OrganizationID)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			s.log.Error().Err(err).Str("org_id", sess.OrganizationID).Msg("cancel failed")
		}
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toSubscriptionDTO(sub))
}

type upgradeRequest struct {
	PlanType   string `json:"planType" validate:"required,oneof=standard enterprise"`
	CouponCode string `json:"couponCode,omitempty"`
}

func (s *Server) handleUpgradeSubscription(w http.ResponseWriter, r *http.Request) {
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}
	var req upgradeRequest
	if err := decodeValid(r, &req); err != nil {
		respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	result, err := s.subUC.Upgrade(r.Context(), sess.OrganizationID, model.PlanType(req.PlanType), req.CouponCode, s.successURL, s.cancelURL)
	if err != nil {
		if reason := couponRejectReason(err); reason != "" {
			metrics.IncCouponRedemption(reason)
			respondJSON(w, r, http.StatusConflict, errorResponse{Error: "coupon " + reason})
			return
		}
		if statusFor(err) == http.StatusInternalServerError {
			s.log.Error().Err(err).Str("org_id", sess.OrganizationID).Msg("upgrade failed")
		}
		respondError(w, r, err)
		return
	}
	if req.CouponCode != "" {
		metrics.IncCouponRedemption("success")
	}
	respondJSON(w, r, http.StatusOK, result)
}

// handleStripeWebhook verifies the provider signature and applies the
// flattened event. Unverifiable payloads get a 400 so the provider retries.
func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "unreadable payload"})
		return
	}
	event, err := s.gateway.ParseWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		s.log.Warn().Err(err).Msg("webhook verification failed")
		respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid webhook"})
		return
	}
	if err := s.subUC.HandlePaymentEvent(r.Context(), event); err != nil {
		s.log.Error().Err(err).Str("session_id", event.SessionID).Msg("webhook handling failed")
		respondJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]bool{"received": true})
}

// handleFinalizeCancellations runs one finalizer pass on demand. The same
// distributed lock as the interval worker prevents overlapping passes.
func (s *Server) handleFinalizeCancellations(w http.ResponseWriter, r *http.Request) {
	report := s.finalizer.RunOnce(r.Context())
	if report == nil {
		// pass skipped (lock held) or failed; details are in the worker log
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "skipped"})
		return
	}
	respondJSON(w, r, http.StatusOK, report)
}
