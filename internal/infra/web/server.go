package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"blessbox/internal/domain/ports/adapter"
	"blessbox/internal/infra/logging"
	"blessbox/internal/usecase"
)

var validate = validator.New()

// Finalizer is the slice of the scheduler worker the cron route needs.
// A nil report means the pass was skipped or failed; the worker logs why.
type Finalizer interface {
	RunOnce(ctx context.Context) *usecase.FinalizeReport
}

type Server struct {
	couponUC   *usecase.CouponUseCase
	regUC      *usecase.RegistrationUseCase
	subUC      *usecase.SubscriptionUseCase
	usageUC    *usecase.UsageUseCase
	verifyUC   *usecase.VerificationUseCase
	setUC      *usecase.QRCodeSetUseCase
	gateway    adapter.PaymentGateway
	sessions   *SessionManager
	finalizer  Finalizer
	cronToken  string
	successURL string
	cancelURL  string
	log        *zerolog.Logger
}

func NewServer(
	couponUC *usecase.CouponUseCase,
	regUC *usecase.RegistrationUseCase,
	subUC *usecase.SubscriptionUseCase,
	usageUC *usecase.UsageUseCase,
	verifyUC *usecase.VerificationUseCase,
	setUC *usecase.QRCodeSetUseCase,
	gateway adapter.PaymentGateway,
	sessions *SessionManager,
	finalizer Finalizer,
	cronToken, successURL, cancelURL string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		couponUC:   couponUC,
		regUC:      regUC,
		subUC:      subUC,
		usageUC:    usageUC,
		verifyUC:   verifyUC,
		setUC:      setUC,
		gateway:    gateway,
		sessions:   sessions,
		finalizer:  finalizer,
		cronToken:  cronToken,
		successURL: successURL,
		cancelURL:  cancelURL,
		log:        &l,
	}
}

// Router builds the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.sessions.Middleware)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// public registration form submission, reached by scanning a QR code
	r.Post("/r/{orgSlug}/{qrLabel}", s.handleSubmitRegistration)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(render.SetContentType(render.ContentTypeJSON))

		api.Post("/coupons/validate", s.handleCouponValidate)
		api.Post("/coupons/apply", s.handleCouponApply)

		api.Post("/registrations/{id}/check-in", s.handleCheckIn)
		api.Post("/registrations/{id}/undo-check-in", s.handleUndoCheckIn)
		api.Get("/registrations/{id}", s.handleGetRegistration)
		api.Delete("/registrations/{id}", s.handleDeleteRegistration)

		api.Post("/qr-sets", s.handleCreateQRSet)
		api.Get("/qr-sets", s.handleListQRSets)
		api.Get("/qr-sets/{id}", s.handleGetQRSet)
		api.Get("/qr-sets/{id}/registrations", s.handleListRegistrations)
		api.Get("/qr-sets/{id}/export", s.handleExportRegistrations)

		api.Get("/usage", s.handleUsage)

		api.Get("/subscription", s.handleGetSubscription)
		api.Post("/subscription/cancel", s.handleCancelSubscription)
		api.Post("/subscription/upgrade", s.handleUpgradeSubscription)

		api.Post("/webhooks/stripe", s.handleStripeWebhook)

		api.Post("/verification/send", s.handleVerificationSend)
		api.Post("/verification/verify", s.handleVerificationVerify)
	})

	r.Route("/cron", func(cron chi.Router) {
		cron.Use(cronAuth(s.cronToken))
		cron.Get("/finalize-cancellations", s.handleFinalizeCancellations)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// requireSession rejects anonymous requests. Returns nil after writing the
// response when unauthorized.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) *Session {
	sess := SessionFrom(r.Context())
	if sess == nil {
		respondJSON(w, r, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return nil
	}
	return sess
}

// decodeValid decodes a JSON body and runs struct validation.
func decodeValid(r *http.Request, dst interface{}) error {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}
