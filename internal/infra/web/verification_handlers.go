package web

import (
	"net/http"
)

type verificationSendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verificationVerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

func (s *Server) handleVerificationSend(w http.ResponseWriter, r *http.Request) {
	var req verificationSendRequest
	if err := decodeValid(r, &req); err != nil {
		respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "a valid email is required"})
		return
	}
	if err := s.verifyUC.Send(r.Context(), req.Email); err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			s.log.Error().Err(err).Msg("verification send failed")
		}
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]bool{"sent": true})
}

func (s *Server) handleVerificationVerify(w http.ResponseWriter, r *http.Request) {
	var req verificationVerifyRequest
	if err := decodeValid(r, &req); err != nil {
		respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "email and 6-digit code are required"})
		return
	}
	if err := s.verifyUC.Verify(r.Context(), req.Email, req.Code); err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			s.log.Error().Err(err).Msg("verification failed")
		}
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]bool{"verified": true})
}
