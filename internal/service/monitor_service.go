package service

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/aegisd/aegis/internal/config"
	"github.com/aegisd/aegis/internal/logger"
	"github.com/aegisd/aegis/internal/metrics"
	"github.com/aegisd/aegis/internal/model"
	"github.com/aegisd/aegis/internal/notifier"
	"github.com/aegisd/aegis/internal/repository"
)

// MonitorService is the threat detection monitor. It inspects every
// inbound request, authenticated or not, with three sliding-window
// detectors and emits security events. Callers reject the request when
// any returned event is critical.
type MonitorService struct {
	windowRepo *repository.WindowRepository
	recorder   *eventRecorder
	cfg        config.ThreatConfig
	badIPs     map[string]struct{}
	log        *logger.Logger
}

// NewMonitorService creates a new MonitorService from an explicitly
// constructed threat configuration.
func NewMonitorService(
	windowRepo *repository.WindowRepository,
	eventRepo *repository.EventRepository,
	alerts notifier.Notifier,
	cfg config.ThreatConfig,
	log *logger.Logger,
) *MonitorService {
	badIPs := make(map[string]struct{}, len(cfg.KnownBadIPs))
	for _, ip := range cfg.KnownBadIPs {
		badIPs[ip] = struct{}{}
	}
	return &MonitorService{
		windowRepo: windowRepo,
		recorder:   newEventRecorder(eventRepo, alerts, log),
		cfg:        cfg,
		badIPs:     badIPs,
		log:        log.WithComponent("threat_monitor"),
	}
}

// AnalyzeRequest runs all detectors against the request's origin and
// returns the emitted events. Every request is counted into the
// brute-force window, successful logins included; a legitimate user
// retrying through network hiccups can trip the threshold. Deliberate
// policy, kept for parity, worth revisiting.
func (s *MonitorService) AnalyzeRequest(ctx context.Context, ipAddress, userAgent, endpoint, identityID string) ([]*model.SecurityEvent, error) {
	var events []*model.SecurityEvent
	now := time.Now()

	bruteForce, err := s.detectBruteForce(ctx, ipAddress, now)
	if err != nil {
		return nil, err
	}
	if bruteForce {
		events = append(events, s.threatEvent(ctx, model.EventBruteForceDetected, model.SeverityHigh,
			fmt.Sprintf("Brute force attack detected from IP: %s", ipAddress),
			ipAddress, userAgent, identityID, endpoint))
	}

	if s.isSuspiciousIP(ctx, ipAddress) {
		events = append(events, s.threatEvent(ctx, model.EventSuspiciousIP, model.SeverityMedium,
			fmt.Sprintf("Request from suspicious IP: %s", ipAddress),
			ipAddress, userAgent, identityID, endpoint))
	}

	unusual, err := s.detectUnusualRate(ctx, ipAddress, now)
	if err != nil {
		return nil, err
	}
	if unusual {
		events = append(events, s.threatEvent(ctx, model.EventUnusualAccessPattern, model.SeverityMedium,
			fmt.Sprintf("Unusual access pattern detected from IP: %s", ipAddress),
			ipAddress, userAgent, identityID, endpoint))
	}

	return events, nil
}

// detectBruteForce maintains the per-IP sliding window: prune entries
// older than the window, insert the current request, compare the
// resulting cardinality to the threshold.
func (s *MonitorService) detectBruteForce(ctx context.Context, ipAddress string, now time.Time) (bool, error) {
	count, err := s.windowRepo.RecordRequest(ctx, ipAddress, now, s.cfg.BruteForceWindow)
	if err != nil {
		return false, err
	}
	return count > int64(s.cfg.BruteForceThreshold), nil
}

// isSuspiciousIP flags known-bad addresses and malformed literals.
// Well-formed private and loopback addresses pass as trusted-network
// traffic; a heuristic, not a guarantee.
func (s *MonitorService) isSuspiciousIP(ctx context.Context, ipAddress string) bool {
	if _, known := s.badIPs[ipAddress]; known {
		return true
	}

	if bad, err := s.windowRepo.IsBadIP(ctx, ipAddress); err == nil && bad {
		return true
	} else if err != nil {
		s.log.Error().Err(err).Str("ip", ipAddress).Msg("failed to check bad IP set")
	}

	if _, err := netip.ParseAddr(ipAddress); err != nil {
		return true
	}

	return false
}

// detectUnusualRate counts requests per origin IP per minute
func (s *MonitorService) detectUnusualRate(ctx context.Context, ipAddress string, now time.Time) (bool, error) {
	count, err := s.windowRepo.IncrementMinuteRate(ctx, ipAddress, now)
	if err != nil {
		return false, err
	}
	return count > int64(s.cfg.MaxRequestsPerMinute), nil
}

func (s *MonitorService) threatEvent(ctx context.Context, eventType string, severity model.Severity, description, ipAddress, userAgent, identityID, endpoint string) *model.SecurityEvent {
	metrics.ThreatDetected(eventType)
	return s.recorder.record(ctx, identityID, eventType, severity, description, ipAddress, userAgent,
		map[string]interface{}{"endpoint": endpoint})
}

// Block inspects analyzed events and returns ErrThreatBlocked when any
// of them is critical. Everything below critical is advisory.
func (s *MonitorService) Block(events []*model.SecurityEvent) error {
	for _, event := range events {
		if event.Severity.AtLeast(model.SeverityCritical) {
			return fmt.Errorf("%w: %s", ErrThreatBlocked, event.EventType)
		}
	}
	return nil
}

// AddBadIP marks an origin as known-bad for the suspicious-origin
// detector. Operator use.
func (s *MonitorService) AddBadIP(ctx context.Context, ipAddress string) error {
	return s.windowRepo.AddBadIP(ctx, ipAddress)
}

// RemoveBadIP clears a known-bad origin
func (s *MonitorService) RemoveBadIP(ctx context.Context, ipAddress string) error {
	return s.windowRepo.RemoveBadIP(ctx, ipAddress)
}
