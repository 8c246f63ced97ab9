package web

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"worklog-server-go/internal/domain/audit"
	"worklog-server-go/internal/domain/auth"
	"worklog-server-go/internal/domain/auth/model"
	"worklog-server-go/internal/domain/session"
)

// Context keys populated by the request gate.
const (
	ContextIdentity  = "auth.identity"
	ContextSessionID = "auth.session_id"
)

// Machine-readable denial codes. Each maps to exactly one exit of the gate
// so a client can tell a stale token from a timed-out session.
const (
	CodeMissingToken      = "missing_token"
	CodeInvalidToken      = "invalid_token"
	CodeNoSession         = "no_session"
	CodeSessionTerminated = "session_terminated"
	CodeSessionExpired    = "session_expired"
	CodeSessionTimedOut   = "session_timed_out"
	CodeUnauthenticated   = "unauthenticated"
	CodeForbidden         = "insufficient_permissions"
	CodeMissingClientKey  = "missing_client_key"
	CodeInvalidClientKey  = "invalid_client_key"
)

// GateOptions wires the request gate middleware.
type GateOptions struct {
	Tokens   *auth.Codec
	Sessions *session.Manager
	Audit    *audit.Recorder
	Logger   Logger
}

// RequestGate authenticates every request on the secured routes. Checks run
// in a fixed order: token presence, token validity, session binding, then
// session state. An accepted request slides the inactivity window without
// blocking the response.
func RequestGate(opts GateOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortError(c, http.StatusUnauthorized, CodeMissingToken, "authentication required")
			return
		}

		claims, err := opts.Tokens.Decode(token)
		if err != nil {
			abortError(c, http.StatusUnauthorized, CodeInvalidToken, "invalid or expired token")
			return
		}
		if claims.SessionID == "" {
			abortError(c, http.StatusUnauthorized, CodeNoSession, "token carries no session")
			return
		}

		_, err = opts.Sessions.Validate(c.Request.Context(), claims.SessionID)
		switch {
		case err == nil:
		case isSessionEnd(err):
			code, reason := sessionEndCode(err)
			if err != session.ErrTerminated {
				// Expiry and timeout are state transitions worth a trace;
				// termination was already audited when it happened.
				opts.Audit.Record(c.Request.Context(), audit.Event{
					ActorID:   &claims.UserID,
					Action:    sessionEndAction(err),
					Outcome:   audit.OutcomeFailure,
					SessionID: claims.SessionID,
					Origin:    originFrom(c),
					Detail:    audit.SessionEndDetail{Reason: reason},
				})
			}
			abortError(c, http.StatusUnauthorized, code, "session is no longer valid")
			return
		default:
			opts.Logger.Error("session validation failed: %v", err)
			abortError(c, http.StatusInternalServerError, "internal_error", "session validation failed")
			return
		}

		c.Set(ContextIdentity, claims.Identity())
		c.Set(ContextSessionID, claims.SessionID)

		opts.Sessions.Touch(claims.SessionID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func isSessionEnd(err error) bool {
	return err == session.ErrTerminated || err == session.ErrExpired || err == session.ErrTimedOut
}

func sessionEndCode(err error) (code, reason string) {
	switch err {
	case session.ErrExpired:
		return CodeSessionExpired, "hard_expiry"
	case session.ErrTimedOut:
		return CodeSessionTimedOut, "inactivity_timeout"
	default:
		return CodeSessionTerminated, "terminated"
	}
}

func sessionEndAction(err error) audit.Action {
	if err == session.ErrExpired {
		return audit.ActionSessionExpired
	}
	return audit.ActionSessionTimedOut
}

// identityFrom returns the authenticated principal placed by the gate.
func identityFrom(c *gin.Context) (model.Identity, bool) {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return model.Identity{}, false
	}
	identity, ok := v.(model.Identity)
	return identity, ok
}

func sessionIDFrom(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}

func originFrom(c *gin.Context) model.Origin {
	return model.Origin{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
