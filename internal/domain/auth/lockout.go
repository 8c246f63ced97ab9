package auth

import (
	"context"
	"time"

	"worklog-server-go/internal/domain/auth/model"
)

// LockoutStatus is the derived lockout decision for one email at one instant.
type LockoutStatus struct {
	Locked         bool
	FailedAttempts int
	MaxAttempts    int
}

// Tracker derives lockout state from the attempt log. No lockout flag is ever
// stored: the state heals itself as old attempts slide out of the window.
type Tracker struct {
	log    AttemptLog
	logger model.Logger
}

func NewTracker(log AttemptLog, logger model.Logger) *Tracker {
	return &Tracker{log: log, logger: logger}
}

// CheckLockout counts failures within the trailing window and compares
// against the threshold. A successful login does not reset the count; only
// time does.
func (t *Tracker) CheckLockout(ctx context.Context, email string, maxAttempts int, window time.Duration) (LockoutStatus, error) {
	status := LockoutStatus{MaxAttempts: maxAttempts}
	if maxAttempts <= 0 {
		return status, nil
	}

	count, err := t.log.CountFailedSince(ctx, email, time.Now().Add(-window))
	if err != nil {
		return status, err
	}
	status.FailedAttempts = int(count)
	status.Locked = status.FailedAttempts >= maxAttempts
	return status, nil
}

// Record appends one attempt fact. Recording never fails the caller's flow;
// a write error is logged and dropped.
func (t *Tracker) Record(ctx context.Context, email string, success bool, reason string, origin model.Origin) {
	err := t.log.Append(ctx, model.LoginAttempt{
		Email:         email,
		Success:       success,
		FailureReason: reason,
		Origin:        origin,
		At:            time.Now(),
	})
	if err != nil {
		t.logger.Error("failed to record login attempt for %s: %v", email, err)
	}
}
