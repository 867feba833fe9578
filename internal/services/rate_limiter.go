package services

import (
	"context"
	"fmt"
	"time"

	"github.com/you/dispatchsvc/domain"
)

// RateLimiter throttles OTP issuance per (phone, purpose) against stored issuance records
type RateLimiter struct {
	otps    domain.OTPRepository
	locker  domain.KeyedLocker
	window  time.Duration
	lockTTL time.Duration
	now     func() time.Time
}

// NewRateLimiter creates a limiter with the given lookback window
func NewRateLimiter(otps domain.OTPRepository, locker domain.KeyedLocker, window, lockTTL time.Duration) *RateLimiter {
	return &RateLimiter{
		otps:    otps,
		locker:  locker,
		window:  window,
		lockTTL: lockTTL,
		now:     time.Now,
	}
}

func lockKey(phone string, purpose domain.OTPPurpose) string {
	return fmt.Sprintf("otp:%s:%s", phone, purpose)
}

// Acquire holds the (phone, purpose) lock and checks the lookback window.
// The caller must invoke release once the new record is stored or discarded.
func (r *RateLimiter) Acquire(ctx context.Context, phone string, purpose domain.OTPPurpose) (func(), error) {
	unlock, ok, err := r.locker.TryLock(ctx, lockKey(phone, purpose), r.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire otp lock: %v", domain.ErrPersistenceError, err)
	}
	if !ok {
		return nil, domain.ErrRateLimited
	}

	recent, err := r.otps.CreatedSince(ctx, phone, purpose, r.now().Add(-r.window))
	if err != nil {
		unlock()
		return nil, fmt.Errorf("%w: check recent otp: %v", domain.ErrPersistenceError, err)
	}
	if recent {
		unlock()
		return nil, domain.ErrRateLimited
	}
	return unlock, nil
}
