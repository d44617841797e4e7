package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	SignatureVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aeralogin_signature_verifications_total",
		Help: "Signature verifications by method and outcome.",
	}, []string{"method", "outcome"})

	AuthorizationsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aeralogin_authorizations_completed_total",
		Help: "Authorization completions by outcome.",
	}, []string{"outcome"})

	CodeExchanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aeralogin_code_exchanges_total",
		Help: "Authorization code exchanges by outcome.",
	}, []string{"outcome"})

	SessionsIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aeralogin_sessions_issued_total",
		Help: "Total number of session tokens issued.",
	})

	Handoffs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aeralogin_handoffs_total",
		Help: "Community hand-offs prepared by device class.",
	}, []string{"device"})

	RedirectResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aeralogin_redirect_resolutions_total",
		Help: "One-time redirect resolutions by outcome.",
	}, []string{"outcome"})

	ScoreUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aeralogin_score_updates_total",
		Help: "Local score mutations by reason.",
	}, []string{"reason"})

	LedgerSyncs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aeralogin_ledger_syncs_total",
		Help: "Score pushes to the ledger by outcome.",
	}, []string{"outcome"})
)

// Register adds all collectors to reg. Registration errors are logged and
// otherwise ignored so that a second registration in tests is harmless.
func Register(reg prometheus.Registerer) {
	collectors := []prometheus.Collector{
		SignatureVerifications,
		AuthorizationsCompleted,
		CodeExchanges,
		SessionsIssued,
		Handoffs,
		RedirectResolutions,
		ScoreUpdates,
		LedgerSyncs,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msg("Failed to register metric")
		}
	}
}

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
