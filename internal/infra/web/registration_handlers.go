package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"blessbox/internal/domain/model"
	"blessbox/internal/infra/metrics"
)

type registrationDTO struct {
	ID           string            `json:"id"`
	QRCodeSetID  string            `json:"qrCodeSetId"`
	QRCodeID     string            `json:"qrCodeId"`
	Data         map[string]string `json:"data"`
	RegisteredAt time.Time         `json:"registeredAt"`
	CheckInToken string            `json:"checkInToken,omitempty"`
	TokenStatus  string            `json:"tokenStatus"`
	CheckedInAt  *time.Time        `json:"checkedInAt,omitempty"`
	CheckedInBy  string            `json:"checkedInBy,omitempty"`
}

// toRegistrationDTO renders a registration. The bearer token is included
// only when the caller already proved they hold it or own the organization.
func toRegistrationDTO(reg *model.Registration, withToken bool) *registrationDTO {
	dto := &registrationDTO{
		ID:           reg.ID,
		QRCodeSetID:  reg.QRCodeSetID,
		QRCodeID:     reg.QRCodeID,
		Data:         reg.Data,
		RegisteredAt: reg.RegisteredAt,
		TokenStatus:  string(reg.TokenStatus),
		CheckedInAt:  reg.CheckedInAt,
		CheckedInBy:  reg.CheckedInBy,
	}
	if withToken {
		dto.CheckInToken = reg.CheckInToken
	}
	return dto
}

// handleSubmitRegistration is the public endpoint behind a printed QR code.
// No session required; the form body is free-form key/value pairs.
func (s *Server) handleSubmitRegistration(w http.ResponseWriter, r *http.Request) {
	orgSlug := chi.URLParam(r, "orgSlug")
	qrLabel := chi.URLParam(r, "qrLabel")

	var formData map[string]string
	if err := render.DecodeJSON(r.Body, &formData); err != nil {
		metrics.IncRegistration("invalid")
		respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	reg, err := s.regUC.Submit(r.Context(), orgSlug, qrLabel, formData)
	if err != nil {
		switch statusFor(err) {
		case http.StatusPaymentRequired:
			metrics.IncRegistration("limit_reached")
		case http.StatusInternalServerError:
			s.log.Error().Err(err).Str("org_slug", orgSlug).Msg("registration submit failed")
		default:
			metrics.IncRegistration("invalid")
		}
		respondError(w, r, err)
		return
	}
	metrics.IncRegistration("created")
	respondJSON(w, r, http.StatusCreated, toRegistrationDTO(reg, true))
}

type checkInRequest struct {
	Token       string `json:"token,omitempty"`
	CheckedInBy string `json:"checkedInBy,omitempty"`
}

// authorizeCheckIn implements the dual auth rule: either the session belongs
// to the owning organization, or the caller presents the registration's own
// bearer token. Returns the attendant identity to record, or "" when denied.
func (s *Server) authorizeCheckIn(r *http.Request, reg *model.Registration, ownerOrgID, token string) (string, bool) {
	if sess := SessionFrom(r.Context()); sess != nil && sess.OrganizationID == ownerOrgID {
		if sess.Email != "" {
			return sess.Email, true
		}
		return sess.OrganizationID, true
	}
	if token != "" && token == reg.CheckInToken {
		return "self", true
	}
	return "", false
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req checkInRequest
	_ = render.DecodeJSON(r.Body, &req) // body is optional for session callers

	reg, ownerOrgID, err := s.regUC.ResolveOwner(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	by, ok := s.authorizeCheckIn(r, reg, ownerOrgID, req.Token)
	if !ok {
		metrics.IncCheckIn("unauthorized")
		respondJSON(w, r, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}
	if req.CheckedInBy != "" {
		by = req.CheckedInBy
	}

	updated, err := s.regUC.CheckIn(r.Context(), id, by)
	if err != nil {
		if statusFor(err) == http.StatusConflict {
			metrics.IncCheckIn("conflict")
		} else if statusFor(err) == http.StatusInternalServerError {
			s.log.Error().Err(err).Str("registration_id", id).Msg("check-in failed")
		}
		respondError(w, r, err)
		return
	}
	metrics.IncCheckIn("success")
	respondJSON(w, r, http.StatusOK, toRegistrationDTO(updated, false))
}

func (s *Server) handleUndoCheckIn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req checkInRequest
	_ = render.DecodeJSON(r.Body, &req)

	reg, ownerOrgID, err := s.regUC.ResolveOwner(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if _, ok := s.authorizeCheckIn(r, reg, ownerOrgID, req.Token); !ok {
		metrics.IncCheckIn("unauthorized")
		respondJSON(w, r, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}

	updated, err := s.regUC.UndoCheckIn(r.Context(), id)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			s.log.Error().Err(err).Str("registration_id", id).Msg("undo check-in failed")
		}
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toRegistrationDTO(updated, false))
}

func (s *Server) handleGetRegistration(w http.ResponseWriter, r *http.Request) {
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}
	id := chi.URLParam(r, "id")
	reg, ownerOrgID, err := s.regUC.ResolveOwner(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if ownerOrgID != sess.OrganizationID {
		respondJSON(w, r, http.StatusForbidden, errorResponse{Error: "forbidden"})
		return
	}
	respondJSON(w, r, http.StatusOK, toRegistrationDTO(reg, true))
}

func (s *Server) handleDeleteRegistration(w http.ResponseWriter, r *http.Request) {
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}
	id := chi.URLParam(r, "id")
	_, ownerOrgID, err := s.regUC.ResolveOwner(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if ownerOrgID != sess.OrganizationID {
		respondJSON(w, r, http.StatusForbidden, errorResponse{Error: "forbidden"})
		return
	}
	if err := s.regUC.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]bool{"deleted": true})
}
