package ws

import (
	"context"
	"net/http"
	"strings"

	"worklog-server-go/internal/domain/auth"
	"worklog-server-go/internal/domain/auth/model"
	"worklog-server-go/internal/domain/session"
)

// Logger provides the minimal logging contract required by the realtime layer.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Gate authenticates the websocket handshake. Authorization happens exactly
// once, before the protocol upgrade; a connection that outlives its session
// is closed by the hub, not re-checked per message.
type Gate struct {
	tokens   *auth.Codec
	sessions *session.Manager
}

func NewGate(tokens *auth.Codec, sessions *session.Manager) *Gate {
	return &Gate{tokens: tokens, sessions: sessions}
}

// Authorize resolves and validates the credentials on the handshake request.
// The token travels in the Authorization header or, for browser clients that
// cannot set headers on websocket dials, in the `token` query parameter.
// The session is checked against the store: a signed token alone is not
// enough to open a realtime channel.
func (g *Gate) Authorize(ctx context.Context, r *http.Request) (model.Identity, string, error) {
	token := handshakeToken(r)
	if token == "" {
		return model.Identity{}, "", auth.ErrMissingToken
	}

	claims, err := g.tokens.Decode(token)
	if err != nil {
		return model.Identity{}, "", auth.ErrInvalidToken
	}
	if claims.SessionID == "" {
		return model.Identity{}, "", auth.ErrNoSession
	}

	if _, err := g.sessions.Validate(ctx, claims.SessionID); err != nil {
		return model.Identity{}, "", err
	}
	return claims.Identity(), claims.SessionID, nil
}

func handshakeToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
