package audit

import (
	"context"
	"time"

	"worklog-server-go/internal/domain/auth/model"
)

// TopicEvent is the event-bus topic audit events are published on after the
// durable append succeeds.
const TopicEvent = "audit.event"

// Action is the closed set of security-relevant transitions.
type Action string

const (
	ActionLogin               Action = "login"
	ActionLoginFailed         Action = "login_failed"
	ActionLockout             Action = "lockout"
	ActionLogout              Action = "logout"
	ActionPasswordChange      Action = "password_change"
	ActionAccountStatusChange Action = "account_status_change"
	ActionUserProvisioned     Action = "user_provisioned"
	ActionSessionExpired      Action = "session_expired"
	ActionSessionTimedOut     Action = "session_timed_out"
	ActionSessionTerminated   Action = "session_terminated"
	ActionExternalDenied      Action = "external_client_denied"
	ActionRealtimeConnect     Action = "realtime_connect"
	ActionRealtimeDenied      Action = "realtime_denied"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Typed details keep the hot call sites strongly typed; heterogeneous extras
// fall back to a plain map.

// LockoutDetail describes a derived lockout decision.
type LockoutDetail struct {
	FailedAttempts int `json:"failed_attempts"`
	MaxAttempts    int `json:"max_attempts"`
}

// SessionEndDetail describes why a session stopped being usable.
type SessionEndDetail struct {
	Reason string `json:"reason"`
}

// FailureDetail carries the internal failure reason for denied operations.
type FailureDetail struct {
	Reason string `json:"reason"`
}

// StatusChangeDetail records an account status transition.
type StatusChangeDetail struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Event is one immutable security fact. ActorID is nil for system-initiated
// events.
type Event struct {
	ActorID    *uint
	Action     Action
	TargetType string
	TargetID   string
	Severity   Severity
	Outcome    Outcome
	SessionID  string
	Origin     model.Origin
	Detail     any
	At         time.Time
}

// Sink appends events to durable storage.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher fans events out to in-process subscribers (realtime push).
type Publisher interface {
	PublishAsync(topic string, args ...interface{})
}

// Recorder writes audit events. Recording is always best-effort from the
// caller's point of view: the surrounding operation has already decided its
// outcome, and a failed append is logged, never raised.
type Recorder struct {
	sink   Sink
	logger model.Logger
	bus    Publisher
}

// NewRecorder wires a Recorder. The publisher is optional.
func NewRecorder(sink Sink, logger model.Logger, bus Publisher) *Recorder {
	return &Recorder{
		sink:   sink,
		logger: logger,
		bus:    bus,
	}
}

// Record appends one event. Callers invoke it after the state-changing effect
// it describes has committed, so a reader never observes an audit entry for an
// effect that has not happened.
func (r *Recorder) Record(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	if event.Severity == "" {
		event.Severity = SeverityInfo
	}

	if err := r.sink.Append(ctx, event); err != nil {
		r.logger.Error("audit append failed for %s: %v", event.Action, err)
		return
	}

	if r.bus != nil {
		r.bus.PublishAsync(TopicEvent, event)
	}
}
