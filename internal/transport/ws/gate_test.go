package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"worklog-server-go/internal/domain/auth"
	"worklog-server-go/internal/domain/auth/model"
	"worklog-server-go/internal/domain/session"
	sessmodel "worklog-server-go/internal/domain/session/model"
	"worklog-server-go/internal/domain/session/store"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func newGateFixture(t *testing.T) (*Gate, *auth.Codec, store.Store) {
	t.Helper()

	st := store.NewMemory()
	sessions, err := session.NewManager(session.Options{
		Store:            st,
		Logger:           nopLogger{},
		SessionLifetime:  time.Hour,
		InactivityWindow: 30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("new session manager: %v", err)
	}
	t.Cleanup(func() { _ = sessions.Close() })

	codec, err := auth.NewCodec("ws-gate-secret")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return NewGate(codec, sessions), codec, st
}

func seedSession(t *testing.T, st store.Store, id string) {
	t.Helper()
	now := time.Now()
	err := st.Create(context.Background(), sessmodel.Session{
		ID:         id,
		UserID:     5,
		CreatedAt:  now,
		LastActive: now,
		ExpiresAt:  now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

func handshakeRequest(authorization, query string) *http.Request {
	target := "/ws"
	if query != "" {
		target += "?" + query
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	return req
}

func TestGateAuthorizeMissingToken(t *testing.T) {
	gate, _, _ := newGateFixture(t)

	_, _, err := gate.Authorize(context.Background(), handshakeRequest("", ""))
	if !errors.Is(err, auth.ErrMissingToken) {
		t.Errorf("expected ErrMissingToken, got %v", err)
	}
}

func TestGateAuthorizeInvalidToken(t *testing.T) {
	gate, _, _ := newGateFixture(t)

	_, _, err := gate.Authorize(context.Background(), handshakeRequest("Bearer garbage", ""))
	if !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestGateAuthorizeNoSessionClaim(t *testing.T) {
	gate, codec, _ := newGateFixture(t)

	token, err := codec.Encode(model.Identity{ID: 5}, "")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, _, err = gate.Authorize(context.Background(), handshakeRequest("Bearer "+token, ""))
	if !errors.Is(err, auth.ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestGateAuthorizeDeadSession(t *testing.T) {
	gate, codec, _ := newGateFixture(t)

	// The token is validly signed, but the store holds no matching session.
	// A signature alone must not open a realtime channel.
	token, err := codec.Encode(model.Identity{ID: 5}, "sess-revoked")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, _, err = gate.Authorize(context.Background(), handshakeRequest("Bearer "+token, ""))
	if !errors.Is(err, session.ErrTerminated) {
		t.Errorf("expected ErrTerminated, got %v", err)
	}
}

func TestGateAuthorizeLiveSession(t *testing.T) {
	gate, codec, st := newGateFixture(t)
	seedSession(t, st, "sess-live")

	token, err := codec.Encode(model.Identity{ID: 5, Email: "rt@example.com", Role: model.RoleMember}, "sess-live")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	identity, sessionID, err := gate.Authorize(context.Background(), handshakeRequest("Bearer "+token, ""))
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if identity.ID != 5 || sessionID != "sess-live" {
		t.Errorf("unexpected principal: %+v / %s", identity, sessionID)
	}
}

func TestGateAuthorizeQueryToken(t *testing.T) {
	gate, codec, st := newGateFixture(t)
	seedSession(t, st, "sess-query")

	token, err := codec.Encode(model.Identity{ID: 5}, "sess-query")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	_, sessionID, err := gate.Authorize(context.Background(), handshakeRequest("", "token="+token))
	if err != nil {
		t.Fatalf("Authorize via query: %v", err)
	}
	if sessionID != "sess-query" {
		t.Errorf("expected sess-query, got %s", sessionID)
	}
}
