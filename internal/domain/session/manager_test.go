package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"worklog-server-go/internal/domain/session/model"
	"worklog-server-go/internal/domain/session/store"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

func newTestManager(t *testing.T, lifetime, inactivity time.Duration) (*Manager, store.Store) {
	t.Helper()

	st := store.NewMemory()
	mgr, err := NewManager(Options{
		Store:            st,
		Logger:           testLogger{},
		SessionLifetime:  lifetime,
		InactivityWindow: inactivity,
	})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	t.Cleanup(func() {
		_ = mgr.Close()
	})
	return mgr, st
}

func TestManagerCreateAndValidate(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t, time.Hour, 30*time.Minute)

	sess, err := mgr.Create(ctx, 1, "10.0.0.1", "cli")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected generated session id")
	}

	// Valid immediately after creation.
	got, err := mgr.Validate(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if got.UserID != 1 {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestManagerValidateUnknownSession(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t, time.Hour, 30*time.Minute)

	if _, err := mgr.Validate(ctx, "no-such-session"); !errors.Is(err, ErrTerminated) {
		t.Fatalf("expected ErrTerminated, got %v", err)
	}
}

func TestManagerHardExpiryDeletesRecord(t *testing.T) {
	ctx := context.Background()
	mgr, st := newTestManager(t, time.Hour, 30*time.Minute)

	// Seed a session whose hard lifetime has already elapsed.
	expired := model.Session{
		ID:         "hard-expired",
		UserID:     2,
		CreatedAt:  time.Now().Add(-2 * time.Hour),
		LastActive: time.Now(),
		ExpiresAt:  time.Now().Add(-time.Minute),
	}
	if err := st.Create(ctx, expired); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	if _, err := mgr.Validate(ctx, expired.ID); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if _, err := st.Find(ctx, expired.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatal("expired session record should be deleted")
	}
}

func TestManagerInactivityTimeoutDeletesRecord(t *testing.T) {
	ctx := context.Background()
	mgr, st := newTestManager(t, time.Hour, 5*time.Minute)

	// Last activity six minutes ago with a five minute window.
	idle := model.Session{
		ID:         "idle-session",
		UserID:     3,
		CreatedAt:  time.Now().Add(-10 * time.Minute),
		LastActive: time.Now().Add(-6 * time.Minute),
		ExpiresAt:  time.Now().Add(time.Hour),
	}
	if err := st.Create(ctx, idle); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	if _, err := mgr.Validate(ctx, idle.ID); !errors.Is(err, ErrTimedOut) {
		t.Fatalf("expected ErrTimedOut, got %v", err)
	}
	if _, err := st.Find(ctx, idle.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatal("timed out session record should be deleted")
	}
}

func TestManagerTouchPostponesDeadline(t *testing.T) {
	ctx := context.Background()
	mgr, st := newTestManager(t, time.Hour, 30*time.Minute)

	sess, err := mgr.Create(ctx, 4, "", "")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	before, err := st.Find(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	mgr.Touch(sess.ID)
	mgr.WaitTouches()

	after, err := st.Find(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if !after.LastActive.After(before.LastActive) {
		t.Fatalf("touch should strictly postpone last active: before=%v after=%v",
			before.LastActive, after.LastActive)
	}
}

func TestManagerTerminateWinsOverTouch(t *testing.T) {
	ctx := context.Background()
	mgr, st := newTestManager(t, time.Hour, 30*time.Minute)

	sess, err := mgr.Create(ctx, 5, "", "")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := mgr.Terminate(ctx, sess.ID); err != nil {
		t.Fatalf("Terminate error: %v", err)
	}
	mgr.Touch(sess.ID)
	mgr.WaitTouches()

	if _, err := st.Find(ctx, sess.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatal("terminate must win over a concurrent touch")
	}
	if _, err := mgr.Validate(ctx, sess.ID); !errors.Is(err, ErrTerminated) {
		t.Fatalf("expected ErrTerminated after terminate, got %v", err)
	}

	// Terminating again is not an error.
	if err := mgr.Terminate(ctx, sess.ID); err != nil {
		t.Fatalf("repeated Terminate error: %v", err)
	}
}

func TestManagerTerminateAll(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t, time.Hour, 30*time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := mgr.Create(ctx, 6, "", ""); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}
	if _, err := mgr.Create(ctx, 7, "", ""); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	removed, err := mgr.TerminateAll(ctx, 6)
	if err != nil {
		t.Fatalf("TerminateAll error: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}

	remaining, err := mgr.ListForUser(ctx, 7)
	if err != nil {
		t.Fatalf("ListForUser error: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("other user's session should survive, got %d", len(remaining))
	}
}
