package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Authentication
	LoginAttempts   *prometheus.CounterVec
	LockoutsCreated prometheus.Counter
	MFAChallenges   *prometheus.CounterVec

	// Sessions
	SessionsCreated    prometheus.Counter
	SessionsTerminated *prometheus.CounterVec
	ActiveSessions     prometheus.Gauge

	// Access decisions
	AccessDecisions *prometheus.CounterVec
	DecisionLatency prometheus.Histogram
	EmergencyAccess prometheus.Counter

	// Audit
	AuditWrites        *prometheus.CounterVec
	AuditWriteFailures prometheus.Counter
	SecurityAlerts     *prometheus.CounterVec

	// Encryption
	CorruptEnvelopes prometheus.Counter
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		LoginAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"}),
		LockoutsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lockouts_created_total",
			Help:      "Account lockouts created after repeated failures",
		}),
		MFAChallenges: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mfa_challenges_total",
			Help:      "MFA code verifications by outcome",
		}, []string{"outcome"}),

		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Sessions issued after successful authentication",
		}),
		SessionsTerminated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_terminated_total",
			Help:      "Sessions terminated by reason",
		}, []string{"reason"}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Currently active sessions",
		}),

		AccessDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_decisions_total",
			Help:      "Access decisions by outcome and deciding stage",
		}, []string{"outcome", "stage"}),
		DecisionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "access_decision_duration_seconds",
			Help:      "Time spent evaluating the access pipeline",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		EmergencyAccess: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emergency_access_total",
			Help:      "Break-glass accesses granted",
		}),

		AuditWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_writes_total",
			Help:      "Audit entries written by resource type",
		}, []string{"resource_type"}),
		AuditWriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_write_failures_total",
			Help:      "Audit writes that fell back to the side channel",
		}),
		SecurityAlerts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "security_alerts_total",
			Help:      "Security alerts raised by event type",
		}, []string{"event"}),

		CorruptEnvelopes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phi_corrupt_envelopes_total",
			Help:      "Stored values that failed envelope authentication",
		}),
	}
}
