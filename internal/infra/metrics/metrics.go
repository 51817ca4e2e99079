package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	registrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrations_total",
			Help: "Registrations by outcome (created/limit_reached/invalid).",
		},
		[]string{"outcome"},
	)

	checkInsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "check_ins_total",
			Help: "Check-in attempts by outcome (success/conflict/unauthorized).",
		},
		[]string{"outcome"},
	)

	couponRedemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coupon_redemptions_total",
			Help: "Coupon redemptions by outcome (success/expired/exhausted/not_found/plan_mismatch).",
		},
		[]string{"outcome"},
	)

	cancellationsFinalized = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cancellations_finalized_total",
			Help: "Subscriptions transitioned canceling -> canceled by the finalizer.",
		},
	)

	finalizerErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "finalizer_errors_total",
			Help: "Per-subscription failures recorded during finalizer passes.",
		},
	)

	finalizerRunSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "finalizer_run_seconds",
			Help:    "Duration of finalizer passes.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60},
		},
	)

	emailsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_total",
			Help: "Transactional emails by template and outcome.",
		},
		[]string{"template", "outcome"},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			registrationsTotal, checkInsTotal, couponRedemptionsTotal,
			cancellationsFinalized, finalizerErrors, finalizerRunSeconds,
			emailsTotal,
		)
	})
}

func IncRegistration(outcome string) { registrationsTotal.WithLabelValues(outcome).Inc() }
func IncCheckIn(outcome string)      { checkInsTotal.WithLabelValues(outcome).Inc() }
func IncCouponRedemption(outcome string) {
	couponRedemptionsTotal.WithLabelValues(outcome).Inc()
}
func IncCancellationsFinalized(n int) { cancellationsFinalized.Add(float64(n)) }
func IncFinalizerErrors(n int)        { finalizerErrors.Add(float64(n)) }
func ObserveFinalizerRun(seconds float64) {
	finalizerRunSeconds.Observe(seconds)
}
func IncEmail(template, outcome string) { emailsTotal.WithLabelValues(template, outcome).Inc() }
