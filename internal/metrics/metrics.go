package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Security-core metrics
var (
	authAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_auth_attempts_total",
			Help: "Authentication attempts by outcome.",
		},
		[]string{"outcome"},
	)

	lockouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aegis_account_lockouts_total",
		Help: "Accounts locked after repeated failures.",
	})

	tokensIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_tokens_issued_total",
			Help: "Tokens issued by type.",
		},
		[]string{"type"},
	)

	threatsDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_threats_detected_total",
			Help: "Threat events emitted by detector type.",
		},
		[]string{"type"},
	)

	securityEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aegis_security_events_total",
			Help: "Security events recorded by severity.",
		},
		[]string{"severity"},
	)
)

// Init registers the security-core metrics in the default registry.
func Init() {
	prometheus.MustRegister(authAttempts, lockouts, tokensIssued, threatsDetected, securityEvents)
}

// Handler returns the Prometheus exposition handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// AuthAttempt counts an authentication attempt outcome
// ("success", "invalid_credentials", "locked", "inactive", ...).
func AuthAttempt(outcome string) {
	authAttempts.WithLabelValues(outcome).Inc()
}

// Lockout counts an account lockout.
func Lockout() {
	lockouts.Inc()
}

// TokenIssued counts an issued token by type ("access", "refresh").
func TokenIssued(tokenType string) {
	tokensIssued.WithLabelValues(tokenType).Inc()
}

// ThreatDetected counts a threat event by detector type.
func ThreatDetected(eventType string) {
	threatsDetected.WithLabelValues(eventType).Inc()
}

// SecurityEvent counts a recorded security event by severity.
func SecurityEvent(severity string) {
	securityEvents.WithLabelValues(severity).Inc()
}
