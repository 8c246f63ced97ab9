package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"worklog-server-go/internal/domain/audit"
	"worklog-server-go/internal/domain/auth/model"
	"worklog-server-go/internal/domain/session"
	"worklog-server-go/internal/domain/session/store"
	"worklog-server-go/internal/platform/storage"
)

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *recordingSink) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) byAction(action audit.Action) []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type serviceFixture struct {
	service  *Service
	repo     *Repository
	verifier *Verifier
	sessions *session.Manager
	sink     *recordingSink
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	db, err := storage.OpenInMemory()
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo, err := NewRepository(db.Gorm())
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	verifier, err := NewVerifier(repo, nopLogger{}, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	attempts, err := NewGormAttemptLog(db.Gorm())
	if err != nil {
		t.Fatalf("new attempt log: %v", err)
	}

	sessions, err := session.NewManager(session.Options{
		Store:            store.NewMemory(),
		Logger:           nopLogger{},
		SessionLifetime:  time.Hour,
		InactivityWindow: 30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("new session manager: %v", err)
	}
	t.Cleanup(func() { _ = sessions.Close() })

	codec, err := NewCodec("service-test-secret")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	sink := &recordingSink{}
	svc, err := NewService(Options{
		Repository: repo,
		Verifier:   verifier,
		Lockout:    NewTracker(attempts, nopLogger{}),
		Sessions:   sessions,
		Tokens:     codec,
		Audit:      audit.NewRecorder(sink, nopLogger{}, nil),
		Policy: model.Policy{
			MaxLoginAttempts: 5,
			LockoutWindow:    15 * time.Minute,
			InactivityWindow: 30 * time.Minute,
			SessionLifetime:  time.Hour,
		},
		Logger: nopLogger{},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	return &serviceFixture{
		service:  svc,
		repo:     repo,
		verifier: verifier,
		sessions: sessions,
		sink:     sink,
	}
}

func (f *serviceFixture) createUser(t *testing.T, email, password string, role model.Role) model.Identity {
	t.Helper()
	return mustCreateUser(t, f.repo, f.verifier, email, password, role)
}

func TestLoginHappyPath(t *testing.T) {
	f := newServiceFixture(t)
	f.createUser(t, "login-ok@example.com", "correct-pass", model.RoleMember)
	origin := model.Origin{IP: "10.0.0.5", UserAgent: "test-agent"}

	result, err := f.service.Login(context.Background(), "Login-OK@example.com", "correct-pass", origin)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Token == "" || result.SessionID == "" {
		t.Fatalf("incomplete login result: %+v", result)
	}

	// The issued session must be live.
	sess, err := f.sessions.Validate(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if sess.UserID != result.Identity.ID {
		t.Errorf("session bound to user %d, expected %d", sess.UserID, result.Identity.ID)
	}

	logins := f.sink.byAction(audit.ActionLogin)
	if len(logins) != 1 {
		t.Fatalf("expected one login audit event, got %d", len(logins))
	}
	if logins[0].SessionID != result.SessionID || logins[0].Origin.IP != "10.0.0.5" {
		t.Errorf("audit event missing context: %+v", logins[0])
	}
}

func TestLoginSuspendedAccount(t *testing.T) {
	f := newServiceFixture(t)
	created := f.createUser(t, "login-suspended@example.com", "correct-pass", model.RoleMember)
	if err := f.repo.UpdateStatus(context.Background(), created.ID, model.StatusSuspended); err != nil {
		t.Fatalf("suspend: %v", err)
	}

	_, err := f.service.Login(context.Background(), "login-suspended@example.com", "correct-pass", model.Origin{})
	if !errors.Is(err, ErrAccountNotActive) {
		t.Fatalf("expected ErrAccountNotActive, got %v", err)
	}

	// Exactly one audit event, warning severity, and no session left behind.
	failures := f.sink.byAction(audit.ActionLoginFailed)
	if len(failures) != 1 {
		t.Fatalf("expected one failed-login audit event, got %d", len(failures))
	}
	if failures[0].Severity != audit.SeverityWarning {
		t.Errorf("expected warning severity, got %s", failures[0].Severity)
	}
	count, err := f.sessions.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("suspended login must not create a session, found %d", count)
	}
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	f := newServiceFixture(t)
	f.createUser(t, "login-lockout@example.com", "correct-pass", model.RoleMember)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.service.Login(ctx, "login-lockout@example.com", "wrong-pass", model.Origin{})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	// The sixth attempt is rejected before verification even with the right
	// password.
	_, err := f.service.Login(ctx, "login-lockout@example.com", "correct-pass", model.Origin{})
	var lockErr *LockoutError
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected LockoutError, got %v", err)
	}
	if lockErr.FailedAttempts != 5 || lockErr.MaxAttempts != 5 {
		t.Errorf("unexpected lockout detail: %+v", lockErr)
	}
	if !errors.Is(err, ErrAccountLocked) {
		t.Error("LockoutError must unwrap to ErrAccountLocked")
	}

	lockouts := f.sink.byAction(audit.ActionLockout)
	if len(lockouts) != 1 {
		t.Fatalf("expected one lockout audit event, got %d", len(lockouts))
	}
	if lockouts[0].Severity != audit.SeverityWarning {
		t.Errorf("expected warning severity, got %s", lockouts[0].Severity)
	}
}

func TestLogoutTerminatesSession(t *testing.T) {
	f := newServiceFixture(t)
	f.createUser(t, "logout@example.com", "correct-pass", model.RoleMember)
	ctx := context.Background()

	result, err := f.service.Login(ctx, "logout@example.com", "correct-pass", model.Origin{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := f.service.Logout(ctx, result.Identity, result.SessionID, model.Origin{}); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := f.sessions.Validate(ctx, result.SessionID); !errors.Is(err, session.ErrTerminated) {
		t.Errorf("expected ErrTerminated after logout, got %v", err)
	}

	// Logging out again is a no-op, not an error.
	if err := f.service.Logout(ctx, result.Identity, result.SessionID, model.Origin{}); err != nil {
		t.Errorf("repeated logout: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	f := newServiceFixture(t)
	identity := f.createUser(t, "change-pass@example.com", "old-pass", model.RoleMember)
	ctx := context.Background()

	err := f.service.ChangePassword(ctx, identity, "not-the-old-pass", "new-pass", model.Origin{})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if err := f.service.ChangePassword(ctx, identity, "old-pass", "new-pass", model.Origin{}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, err := f.verifier.Verify(ctx, identity.Email, "old-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password still accepted after change")
	}
	if _, err := f.verifier.Verify(ctx, identity.Email, "new-pass"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestProvisionAndStatusChange(t *testing.T) {
	f := newServiceFixture(t)
	admin := f.createUser(t, "provision-admin@example.com", "admin-pass", model.RoleAdmin)
	ctx := context.Background()

	created, err := f.service.ProvisionUser(ctx, admin, "provisioned@example.com", "New Hire", "initial-pass", model.RoleMember)
	if err != nil {
		t.Fatalf("ProvisionUser: %v", err)
	}
	if created.Status != model.StatusActive {
		t.Errorf("provisioned account should be active, got %v", created.Status)
	}

	if err := f.service.SetAccountStatus(ctx, admin, created.ID, model.StatusSuspended); err != nil {
		t.Fatalf("SetAccountStatus: %v", err)
	}
	updated, err := f.service.FindIdentity(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindIdentity: %v", err)
	}
	if updated.Status != model.StatusSuspended {
		t.Errorf("expected suspended status, got %v", updated.Status)
	}

	changes := f.sink.byAction(audit.ActionAccountStatusChange)
	if len(changes) != 1 {
		t.Fatalf("expected one status-change audit event, got %d", len(changes))
	}
	detail, ok := changes[0].Detail.(audit.StatusChangeDetail)
	if !ok {
		t.Fatalf("expected StatusChangeDetail, got %T", changes[0].Detail)
	}
	if detail.From != "active" || detail.To != "suspended" {
		t.Errorf("unexpected transition detail: %+v", detail)
	}
}

func TestTerminateAllSessions(t *testing.T) {
	f := newServiceFixture(t)
	f.createUser(t, "bulk-term@example.com", "correct-pass", model.RoleMember)
	admin := f.createUser(t, "bulk-term-admin@example.com", "admin-pass", model.RoleAdmin)
	ctx := context.Background()

	var userID uint
	for i := 0; i < 3; i++ {
		result, err := f.service.Login(ctx, "bulk-term@example.com", "correct-pass", model.Origin{})
		if err != nil {
			t.Fatalf("Login %d: %v", i, err)
		}
		userID = result.Identity.ID
	}

	removed, err := f.service.TerminateAllSessions(ctx, admin, userID, model.Origin{})
	if err != nil {
		t.Fatalf("TerminateAllSessions: %v", err)
	}
	if removed != 3 {
		t.Errorf("expected 3 removed sessions, got %d", removed)
	}
	remaining, err := f.service.Sessions(ctx, userID)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected no remaining sessions, got %d", len(remaining))
	}
}
