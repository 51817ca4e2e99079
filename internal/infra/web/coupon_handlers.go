package web

import (
	"errors"
	"net/http"

	"blessbox/internal/domain"
	"blessbox/internal/domain/model"
)

type couponValidateRequest struct {
	Code string `json:"code" validate:"required"`
}

type couponApplyRequest struct {
	Code        string `json:"code" validate:"required"`
	AmountCents int64  `json:"amountCents" validate:"gte=0"`
	PlanType    string `json:"planType" validate:"required"`
}

type couponDTO struct {
	Code          string `json:"code"`
	DiscountType  string `json:"discountType"`
	DiscountValue int64  `json:"discountValue"`
}

type couponValidateResponse struct {
	Valid  bool       `json:"valid"`
	Reason string     `json:"reason,omitempty"`
	Coupon *couponDTO `json:"coupon,omitempty"`
}

type couponApplyResponse struct {
	Valid                 bool       `json:"valid"`
	Reason                string     `json:"reason,omitempty"`
	Coupon                *couponDTO `json:"coupon,omitempty"`
	DiscountedAmountCents int64      `json:"discountedAmountCents,omitempty"`
	DiscountAppliedCents  int64      `json:"discountAppliedCents,omitempty"`
}

func toCouponDTO(c *model.Coupon) *couponDTO {
	if c == nil {
		return nil
	}
	return &couponDTO{Code: c.Code, DiscountType: string(c.DiscountType), DiscountValue: c.DiscountValue}
}

// An unknown or unusable code is a 200 with valid:false, not an error: the
// UI renders it as inline field feedback.
func (s *Server) handleCouponValidate(w http.ResponseWriter, r *http.Request) {
	var req couponValidateRequest
	if err := decodeValid(r, &req); err != nil {
		respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	v, err := s.couponUC.Validate(r.Context(), req.Code)
	if err != nil {
		s.log.Error().Err(err).Msg("coupon validate failed")
		respondError(w, r, err)
		return
	}
	resp := couponValidateResponse{Valid: v.Valid, Reason: v.Reason}
	if v.Valid {
		resp.Coupon = toCouponDTO(v.Coupon)
	}
	respondJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleCouponApply(w http.ResponseWriter, r *http.Request) {
	var req couponApplyRequest
	if err := decodeValid(r, &req); err != nil {
		respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	pt := model.PlanType(req.PlanType)
	if !pt.Valid() {
		respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "unknown plan type"})
		return
	}
	app, err := s.couponUC.Apply(r.Context(), req.Code, req.AmountCents, pt)
	if err != nil {
		if reason := couponRejectReason(err); reason != "" {
			respondJSON(w, r, http.StatusOK, couponApplyResponse{Valid: false, Reason: reason})
			return
		}
		s.log.Error().Err(err).Msg("coupon apply failed")
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, couponApplyResponse{
		Valid:                 true,
		Coupon:                toCouponDTO(app.Coupon),
		DiscountedAmountCents: app.DiscountedAmountCents,
		DiscountAppliedCents:  app.DiscountAppliedCents,
	})
}

// couponRejectReason flattens the coupon sentinels into the wire reason
// vocabulary; empty means the error is not a coupon rejection.
func couponRejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrCouponNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrCouponExpired):
		return "expired"
	case errors.Is(err, domain.ErrCouponExhausted):
		return "exhausted"
	case errors.Is(err, domain.ErrCouponPlanMismatch):
		return "plan_mismatch"
	default:
		return ""
	}
}
