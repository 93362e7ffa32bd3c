package middleware

import (
	"net/http"
)

// Threat runs the threat detectors against every request before it
// reaches a handler. Detection is advisory for most severities; only a
// critical finding blocks the request. Detector failures fail open so a
// store outage does not take authentication down with it.
func (m *Middleware) Threat(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)

		events, err := m.monitorSvc.AnalyzeRequest(r.Context(), ip, r.UserAgent(), r.URL.Path, GetIdentityID(r.Context()))
		if err != nil {
			m.log.Error().Err(err).Str("ip", ip).Msg("threat analysis failed")
			next.ServeHTTP(w, r)
			return
		}

		if err := m.monitorSvc.Block(events); err != nil {
			m.log.Warn().
				Err(err).
				Str("ip", ip).
				Str("path", r.URL.Path).
				Msg("request blocked by threat detection")
			http.Error(w, `{"error":"threat_blocked","message":"Request blocked by security policy"}`, http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
