package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"worklog-server-go/internal/domain/session/model"
	"worklog-server-go/internal/domain/session/store"
)

// Session re-exports the session entity for callers.
type Session = model.Session

// Validation failures are distinguished internally for audit detail even when
// collapsed to a single unauthenticated status externally.
var (
	ErrTerminated = errors.New("session terminated")
	ErrExpired    = errors.New("session expired")
	ErrTimedOut   = errors.New("session timed out")
)

// Logger provides the minimal logging contract required by the manager.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

const (
	defaultCleanupInterval = 10 * time.Minute
	minCleanupInterval     = 30 * time.Second
	touchTimeout           = 5 * time.Second
)

// Options encapsulates the dependencies required to construct a Manager.
type Options struct {
	Store            store.Store
	Logger           Logger
	SessionLifetime  time.Duration
	InactivityWindow time.Duration
	CleanupInterval  time.Duration
}

// Manager owns the session lifecycle: creation, sliding-window renewal,
// validation and termination. It never caches session state in process;
// every check re-reads the store.
type Manager struct {
	store            store.Store
	logger           Logger
	sessionLifetime  time.Duration
	inactivityWindow time.Duration

	cleanupInterval time.Duration
	cleanupStop     chan struct{}
	cleanupOnce     sync.Once
	touchWG         sync.WaitGroup
}

// NewManager wires a Manager using the supplied options.
func NewManager(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("session manager requires a store")
	}
	if opts.Logger == nil {
		return nil, errors.New("session manager requires a logger")
	}

	lifetime := opts.SessionLifetime
	if lifetime <= 0 {
		lifetime = 7 * 24 * time.Hour
	}
	inactivity := opts.InactivityWindow
	if inactivity <= 0 {
		inactivity = 30 * time.Minute
	}
	cleanupInterval := opts.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	} else if cleanupInterval < minCleanupInterval {
		opts.Logger.Warn("cleanup interval too small, adjusting to %v", minCleanupInterval)
		cleanupInterval = minCleanupInterval
	}

	mgr := &Manager{
		store:            opts.Store,
		logger:           opts.Logger,
		sessionLifetime:  lifetime,
		inactivityWindow: inactivity,
		cleanupInterval:  cleanupInterval,
		cleanupStop:      make(chan struct{}),
	}

	go mgr.runCleanup()
	return mgr, nil
}

func (m *Manager) runCleanup() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, err := m.store.CleanupExpired(context.Background(), time.Now())
			if err != nil {
				m.logger.Warn("session store cleanup failed: %v", err)
			} else if removed > 0 {
				m.logger.Debug("session cleanup removed %d expired sessions", removed)
			}
		case <-m.cleanupStop:
			return
		}
	}
}

// InactivityWindow exposes the configured sliding window.
func (m *Manager) InactivityWindow() time.Duration {
	return m.inactivityWindow
}

// Create inserts a new session for the identity and returns it.
func (m *Manager) Create(ctx context.Context, userID uint, ip, userAgent string) (Session, error) {
	now := time.Now()
	sess := model.Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		IP:         ip,
		UserAgent:  userAgent,
		CreatedAt:  now,
		LastActive: now,
		ExpiresAt:  now.Add(m.sessionLifetime),
	}
	if err := m.store.Create(ctx, sess); err != nil {
		m.logger.Error("failed to create session for user %d: %v", userID, err)
		return Session{}, err
	}
	m.logger.Debug("session %s created for user %d", sess.ID, userID)
	return sess, nil
}

// Validate looks up the session and applies the hard-expiry check followed by
// the inactivity check, deleting the record the moment either trips.
func (m *Manager) Validate(ctx context.Context, id string) (Session, error) {
	sess, err := m.store.Find(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, ErrTerminated
	}
	if err != nil {
		return Session{}, err
	}

	now := time.Now()
	if sess.HardExpired(now) {
		if err := m.store.Delete(ctx, id); err != nil {
			m.logger.Warn("failed to delete expired session %s: %v", id, err)
		}
		return Session{}, ErrExpired
	}
	if sess.TimedOut(now, m.inactivityWindow) {
		if err := m.store.Delete(ctx, id); err != nil {
			m.logger.Warn("failed to delete timed out session %s: %v", id, err)
		}
		return Session{}, ErrTimedOut
	}
	return sess, nil
}

// Touch bumps last_active without blocking the caller. Failures are logged,
// never surfaced; a session deleted in the meantime stays deleted.
func (m *Manager) Touch(id string) {
	m.touchWG.Add(1)
	go func() {
		defer m.touchWG.Done()

		ctx, cancel := context.WithTimeout(context.Background(), touchTimeout)
		defer cancel()

		err := m.store.Touch(ctx, id, time.Now())
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			m.logger.Warn("session touch failed for %s: %v", id, err)
		}
	}()
}

// WaitTouches blocks until all dispatched touches have settled. Used by
// shutdown and tests.
func (m *Manager) WaitTouches() {
	m.touchWG.Wait()
}

// Terminate deletes one session. Idempotent.
func (m *Manager) Terminate(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		m.logger.Error("failed to terminate session %s: %v", id, err)
		return err
	}
	m.logger.Info("session %s terminated", id)
	return nil
}

// TerminateAll deletes every session owned by the user and returns the count.
func (m *Manager) TerminateAll(ctx context.Context, userID uint) (int64, error) {
	removed, err := m.store.DeleteByUser(ctx, userID)
	if err != nil {
		m.logger.Error("failed to terminate sessions for user %d: %v", userID, err)
		return removed, err
	}
	m.logger.Info("terminated %d sessions for user %d", removed, userID)
	return removed, nil
}

// ListForUser returns the user's live sessions.
func (m *Manager) ListForUser(ctx context.Context, userID uint) ([]Session, error) {
	return m.store.ListByUser(ctx, userID)
}

// Count exposes the number of stored sessions.
func (m *Manager) Count(ctx context.Context) (int64, error) {
	return m.store.Count(ctx)
}

// Close stops the cleanup loop, waits for in-flight touches, and releases the
// store.
func (m *Manager) Close() error {
	m.cleanupOnce.Do(func() {
		close(m.cleanupStop)
	})
	m.touchWG.Wait()

	if err := m.store.Close(context.Background()); err != nil {
		m.logger.Error("failed closing session store: %v", err)
		return err
	}
	return nil
}
