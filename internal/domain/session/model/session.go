package model

import "time"

// Session represents one authenticated device binding. A user may hold many
// concurrent sessions; each login event creates exactly one.
type Session struct {
	ID         string    `json:"id"`
	UserID     uint      `json:"user_id"`
	IP         string    `json:"ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// HardExpired reports whether the fixed lifetime has elapsed.
func (s Session) HardExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TimedOut reports whether the sliding inactivity window has elapsed.
func (s Session) TimedOut(now time.Time, inactivityWindow time.Duration) bool {
	return now.Sub(s.LastActive) >= inactivityWindow
}

// Expired reports whether the session is unusable at the given instant for
// either reason.
func (s Session) Expired(now time.Time, inactivityWindow time.Duration) bool {
	return s.HardExpired(now) || s.TimedOut(now, inactivityWindow)
}
