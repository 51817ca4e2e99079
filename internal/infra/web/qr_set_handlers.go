package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"blessbox/internal/domain/model"
)

type createQRSetRequest struct {
	Name       string            `json:"name" validate:"required"`
	Labels     []string          `json:"labels" validate:"required,min=1,dive,required"`
	FormSchema []model.FormField `json:"formSchema"`
}

type qrSetDTO struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	QRCodes    []model.QRCode    `json:"qrCodes"`
	FormSchema []model.FormField `json:"formSchema"`
	ScanCount  int64             `json:"scanCount"`
	CreatedAt  time.Time         `json:"createdAt"`
}

func toQRSetDTO(set *model.QRCodeSet) *qrSetDTO {
	return &qrSetDTO{
		ID:         set.ID,
		Name:       set.Name,
		QRCodes:    set.QRCodes,
		FormSchema: set.FormSchema,
		ScanCount:  set.ScanCount,
		CreatedAt:  set.CreatedAt,
	}
}

func (s *Server) handleCreateQRSet(w http.ResponseWriter, r *http.Request) {
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}
	var req createQRSetRequest
	if err := decodeValid(r, &req); err != nil {
		respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	set, err := s.setUC.Create(r.Context(), sess.OrganizationID, req.Name, req.Labels, req.FormSchema)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			s.log.Error().Err(err).Str("org_id", sess.OrganizationID).Msg("qr set create failed")
		}
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, toQRSetDTO(set))
}

func (s *Server) handleListQRSets(w http.ResponseWriter, r *http.Request) {
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}
	sets, err := s.setUC.List(r.Context(), sess.OrganizationID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]*qrSetDTO, 0, len(sets))
	for _, set := range sets {
		out = append(out, toQRSetDTO(set))
	}
	respondJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleGetQRSet(w http.ResponseWriter, r *http.Request) {
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}
	set, err := s.setUC.Get(r.Context(), sess.OrganizationID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toQRSetDTO(set))
}

func (s *Server) handleListRegistrations(w http.ResponseWriter, r *http.Request) {
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}
	setID := chi.URLParam(r, "id")
	if _, err := s.setUC.Get(r.Context(), sess.OrganizationID, setID); err != nil {
		respondError(w, r, err)
		return
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	regs, total, err := s.regUC.List(r.Context(), setID, offset, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]*registrationDTO, 0, len(regs))
	for _, reg := range regs {
		out = append(out, toRegistrationDTO(reg, true))
	}
	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"registrations": out,
		"total":         total,
		"offset":        offset,
		"limit":         limit,
	})
}

func (s *Server) handleExportRegistrations(w http.ResponseWriter, r *http.Request) {
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}
	csvData, err := s.setUC.ExportCSV(r.Context(), sess.OrganizationID, chi.URLParam(r, "id"))
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			s.log.Error().Err(err).Str("org_id", sess.OrganizationID).Msg("export failed")
		}
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="registrations.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(csvData)
}
