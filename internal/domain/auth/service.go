package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"worklog-server-go/internal/domain/audit"
	"worklog-server-go/internal/domain/auth/model"
	"worklog-server-go/internal/domain/eventbus"
	"worklog-server-go/internal/domain/session"
	platerr "worklog-server-go/internal/platform/errors"
)

// Options encapsulates the dependencies required to construct a Service.
type Options struct {
	Repository *Repository
	Verifier   *Verifier
	Lockout    *Tracker
	Sessions   *session.Manager
	Tokens     *Codec
	Audit      *audit.Recorder
	Bus        *eventbus.Bus
	Policy     model.Policy
	Logger     model.Logger
}

// Service implements the authentication operations: login, logout, password
// change, and the admin-side account management.
type Service struct {
	repo     *Repository
	verifier *Verifier
	lockout  *Tracker
	sessions *session.Manager
	tokens   *Codec
	audit    *audit.Recorder
	bus      *eventbus.Bus
	policy   model.Policy
	logger   model.Logger
}

// NewService wires a Service using the supplied options.
func NewService(opts Options) (*Service, error) {
	switch {
	case opts.Repository == nil:
		return nil, errors.New("auth service requires a repository")
	case opts.Verifier == nil:
		return nil, errors.New("auth service requires a verifier")
	case opts.Lockout == nil:
		return nil, errors.New("auth service requires a lockout tracker")
	case opts.Sessions == nil:
		return nil, errors.New("auth service requires a session manager")
	case opts.Tokens == nil:
		return nil, errors.New("auth service requires a token codec")
	case opts.Audit == nil:
		return nil, errors.New("auth service requires an audit recorder")
	case opts.Logger == nil:
		return nil, errors.New("auth service requires a logger")
	}

	return &Service{
		repo:     opts.Repository,
		verifier: opts.Verifier,
		lockout:  opts.Lockout,
		sessions: opts.Sessions,
		tokens:   opts.Tokens,
		audit:    opts.Audit,
		bus:      opts.Bus,
		policy:   opts.Policy,
		logger:   opts.Logger,
	}, nil
}

// LoginResult carries everything the transport layer returns on a successful
// login.
type LoginResult struct {
	Identity  model.Identity
	Token     string
	SessionID string
	ExpiresAt time.Time
}

// Login runs the full authentication flow: lockout check, credential
// verification, session creation, token issuance. Every attempt leaves a fact
// in the attempt log regardless of outcome.
func (s *Service) Login(ctx context.Context, email, password string, origin model.Origin) (*LoginResult, error) {
	const op = "auth.Login"
	email = NormalizeEmail(email)

	status, err := s.lockout.CheckLockout(ctx, email, s.policy.MaxLoginAttempts, s.policy.LockoutWindow)
	if err != nil {
		// The attempt log is the source of truth for lockout; if it cannot be
		// read we refuse rather than skip the check.
		s.logger.Error("lockout check failed for %s: %v", email, err)
		return nil, platerr.Wrap(platerr.KindAuth, op, "lockout check failed", err)
	}
	if status.Locked {
		s.lockout.Record(ctx, email, false, "locked", origin)
		s.audit.Record(ctx, audit.Event{
			Action:   audit.ActionLockout,
			Severity: audit.SeverityWarning,
			Outcome:  audit.OutcomeFailure,
			Origin:   origin,
			Detail: audit.LockoutDetail{
				FailedAttempts: status.FailedAttempts,
				MaxAttempts:    status.MaxAttempts,
			},
		})
		return nil, &LockoutError{
			FailedAttempts: status.FailedAttempts,
			MaxAttempts:    status.MaxAttempts,
		}
	}

	identity, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		reason := "invalid_credentials"
		severity := audit.SeverityInfo
		if errors.Is(err, ErrAccountNotActive) {
			reason = "account_not_active"
			severity = audit.SeverityWarning
		}
		s.lockout.Record(ctx, email, false, reason, origin)
		s.audit.Record(ctx, audit.Event{
			Action:   audit.ActionLoginFailed,
			Severity: severity,
			Outcome:  audit.OutcomeFailure,
			Origin:   origin,
			Detail:   audit.FailureDetail{Reason: reason},
		})
		return nil, err
	}

	sess, err := s.sessions.Create(ctx, identity.ID, origin.IP, origin.UserAgent)
	if err != nil {
		return nil, platerr.Wrap(platerr.KindSession, op, "session creation failed", err)
	}

	token, err := s.tokens.Encode(identity, sess.ID)
	if err != nil {
		// Do not leave an orphaned session behind a token that was never
		// issued.
		if terr := s.sessions.Terminate(ctx, sess.ID); terr != nil {
			s.logger.Warn("failed to roll back session %s: %v", sess.ID, terr)
		}
		return nil, platerr.Wrap(platerr.KindAuth, op, "token issuance failed", err)
	}

	s.lockout.Record(ctx, email, true, "", origin)
	s.audit.Record(ctx, audit.Event{
		ActorID:   &identity.ID,
		Action:    audit.ActionLogin,
		Outcome:   audit.OutcomeSuccess,
		SessionID: sess.ID,
		Origin:    origin,
	})

	s.logger.Info("user %d logged in, session %s", identity.ID, sess.ID)
	return &LoginResult{
		Identity:  identity,
		Token:     token,
		SessionID: sess.ID,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// Logout terminates the caller's session. A session that is already gone is
// not an error; logout is idempotent.
func (s *Service) Logout(ctx context.Context, identity model.Identity, sessionID string, origin model.Origin) error {
	const op = "auth.Logout"

	if err := s.sessions.Terminate(ctx, sessionID); err != nil {
		return platerr.Wrap(platerr.KindSession, op, "session termination failed", err)
	}
	if s.bus != nil {
		s.bus.PublishAsync(eventbus.TopicSessionTerminated, identity.ID, sessionID)
	}

	s.audit.Record(ctx, audit.Event{
		ActorID:   &identity.ID,
		Action:    audit.ActionLogout,
		Outcome:   audit.OutcomeSuccess,
		SessionID: sessionID,
		Origin:    origin,
	})
	return nil
}

// ChangePassword verifies the current password before storing a new hash.
// Existing sessions stay valid.
func (s *Service) ChangePassword(ctx context.Context, identity model.Identity, current, updated string, origin model.Origin) error {
	const op = "auth.ChangePassword"

	if _, err := s.verifier.Verify(ctx, identity.Email, current); err != nil {
		s.audit.Record(ctx, audit.Event{
			ActorID:  &identity.ID,
			Action:   audit.ActionPasswordChange,
			Severity: audit.SeverityWarning,
			Outcome:  audit.OutcomeFailure,
			Origin:   origin,
			Detail:   audit.FailureDetail{Reason: "current_password_mismatch"},
		})
		return ErrInvalidCredentials
	}

	hash, err := s.verifier.HashPassword(updated)
	if err != nil {
		return platerr.Wrap(platerr.KindAuth, op, "password hashing failed", err)
	}
	if err := s.repo.UpdatePassword(ctx, identity.ID, hash); err != nil {
		return platerr.Wrap(platerr.KindStorage, op, "password update failed", err)
	}

	s.audit.Record(ctx, audit.Event{
		ActorID: &identity.ID,
		Action:  audit.ActionPasswordChange,
		Outcome: audit.OutcomeSuccess,
		Origin:  origin,
	})
	return nil
}

// ProvisionUser creates a new account. Admin-only; the transport layer
// enforces the role before calling.
func (s *Service) ProvisionUser(ctx context.Context, actor model.Identity, email, name, password string, role model.Role) (model.Identity, error) {
	const op = "auth.ProvisionUser"

	hash, err := s.verifier.HashPassword(password)
	if err != nil {
		return model.Identity{}, platerr.Wrap(platerr.KindAuth, op, "password hashing failed", err)
	}
	created, err := s.repo.Create(ctx, email, name, hash, role)
	if err != nil {
		return model.Identity{}, platerr.Wrap(platerr.KindStorage, op, "account creation failed", err)
	}

	s.audit.Record(ctx, audit.Event{
		ActorID:    &actor.ID,
		Action:     audit.ActionUserProvisioned,
		Outcome:    audit.OutcomeSuccess,
		TargetType: "user",
		TargetID:   fmt.Sprintf("%d", created.ID),
	})
	return created, nil
}

// SetAccountStatus transitions an account's status. Suspension does not
// terminate live sessions; TerminateAllSessions is the explicit action for
// that.
func (s *Service) SetAccountStatus(ctx context.Context, actor model.Identity, userID uint, status model.AccountStatus) error {
	const op = "auth.SetAccountStatus"

	target, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return platerr.Wrap(platerr.KindStorage, op, "account lookup failed", err)
	}
	if err := s.repo.UpdateStatus(ctx, userID, status); err != nil {
		return platerr.Wrap(platerr.KindStorage, op, "status update failed", err)
	}

	s.audit.Record(ctx, audit.Event{
		ActorID:    &actor.ID,
		Action:     audit.ActionAccountStatusChange,
		Severity:   audit.SeverityWarning,
		Outcome:    audit.OutcomeSuccess,
		TargetType: "user",
		TargetID:   fmt.Sprintf("%d", userID),
		Detail: audit.StatusChangeDetail{
			From: target.Status.String(),
			To:   status.String(),
		},
	})
	return nil
}

// TerminateAllSessions force-terminates every session of one user and returns
// the count removed.
func (s *Service) TerminateAllSessions(ctx context.Context, actor model.Identity, userID uint, origin model.Origin) (int64, error) {
	const op = "auth.TerminateAllSessions"

	removed, err := s.sessions.TerminateAll(ctx, userID)
	if err != nil {
		return removed, platerr.Wrap(platerr.KindSession, op, "bulk termination failed", err)
	}
	if s.bus != nil {
		// Empty session ID means "all sessions of this user".
		s.bus.PublishAsync(eventbus.TopicSessionTerminated, userID, "")
	}

	s.audit.Record(ctx, audit.Event{
		ActorID:    &actor.ID,
		Action:     audit.ActionSessionTerminated,
		Severity:   audit.SeverityWarning,
		Outcome:    audit.OutcomeSuccess,
		TargetType: "user",
		TargetID:   fmt.Sprintf("%d", userID),
		Origin:     origin,
		Detail:     audit.SessionEndDetail{Reason: fmt.Sprintf("admin terminated %d sessions", removed)},
	})
	return removed, nil
}

// Sessions lists the live sessions of one user.
func (s *Service) Sessions(ctx context.Context, userID uint) ([]session.Session, error) {
	return s.sessions.ListForUser(ctx, userID)
}

// FindIdentity resolves a fresh identity from storage, reflecting the current
// role and status rather than the snapshot baked into a token.
func (s *Service) FindIdentity(ctx context.Context, userID uint) (model.Identity, error) {
	identity, err := s.repo.FindByID(ctx, userID)
	if errors.Is(err, errUserNotFound) {
		return model.Identity{}, ErrInvalidCredentials
	}
	return identity, err
}
