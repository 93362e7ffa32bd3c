package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aegisd/aegis/internal/database"
)

const badIPSetKey = "threat:bad_ips"

// WindowRepository maintains the per-origin-IP sliding counters used by
// threat detection: a timestamp-scored sorted set per IP for the
// brute-force window, a per-minute hash counter for rate anomalies, and
// the operator-maintained bad-IP set. Window entries are pruned lazily
// on each check; whole windows expire after inactivity.
type WindowRepository struct {
	rdb *database.Redis
}

// NewWindowRepository creates a new WindowRepository
func NewWindowRepository(rdb *database.Redis) *WindowRepository {
	return &WindowRepository{rdb: rdb}
}

func requestWindowKey(ip string) string { return "requests:" + ip }
func accessRateKey(ip string) string    { return "access_rate:" + ip }

// RecordRequest inserts the current request into the IP's sliding window,
// discards entries older than window, and returns the resulting count.
// Members are nanosecond timestamps so two requests inside the same
// second still count separately.
func (r *WindowRepository) RecordRequest(ctx context.Context, ip string, now time.Time, window time.Duration) (int64, error) {
	cutoff := float64(now.Add(-window).Unix())
	score := float64(now.Unix())
	member := strconv.FormatInt(now.UnixNano(), 10)

	count, err := r.rdb.WindowPruneAndCount(ctx, requestWindowKey(ip), cutoff, score, member, window)
	if err != nil {
		return 0, fmt.Errorf("failed to record request in window: %w", err)
	}
	return count, nil
}

// IncrementMinuteRate bumps the IP's counter for the current minute and
// returns the new value. Counters are kept for five minutes.
func (r *WindowRepository) IncrementMinuteRate(ctx context.Context, ip string, now time.Time) (int64, error) {
	key := accessRateKey(ip)
	minute := strconv.FormatInt(now.Unix()/60, 10)

	count, err := r.rdb.HashIncrBy(ctx, key, minute, 1)
	if err != nil {
		return 0, fmt.Errorf("failed to increment rate counter: %w", err)
	}
	if err := r.rdb.Expire(ctx, key, 5*time.Minute); err != nil {
		return 0, fmt.Errorf("failed to expire rate counter: %w", err)
	}
	return count, nil
}

// AddBadIP adds an address to the known-bad set
func (r *WindowRepository) AddBadIP(ctx context.Context, ip string) error {
	if err := r.rdb.SAdd(ctx, badIPSetKey, ip).Err(); err != nil {
		return fmt.Errorf("failed to add bad IP: %w", err)
	}
	return nil
}

// RemoveBadIP removes an address from the known-bad set
func (r *WindowRepository) RemoveBadIP(ctx context.Context, ip string) error {
	if err := r.rdb.SRem(ctx, badIPSetKey, ip).Err(); err != nil {
		return fmt.Errorf("failed to remove bad IP: %w", err)
	}
	return nil
}

// IsBadIP reports whether the address is in the known-bad set
func (r *WindowRepository) IsBadIP(ctx context.Context, ip string) (bool, error) {
	ok, err := r.rdb.SIsMember(ctx, badIPSetKey, ip).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check bad IP set: %w", err)
	}
	return ok, nil
}
