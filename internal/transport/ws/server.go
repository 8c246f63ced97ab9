package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"worklog-server-go/internal/domain/audit"
	"worklog-server-go/internal/domain/auth"
	"worklog-server-go/internal/domain/auth/model"
	"worklog-server-go/internal/domain/eventbus"
	"worklog-server-go/internal/domain/session"
	"worklog-server-go/internal/platform/observability"
)

const shutdownGrace = 10 * time.Second

// Options wires the realtime server.
type Options struct {
	Addr   string
	Gate   *Gate
	Hub    *Hub
	Audit  *audit.Recorder
	Bus    *eventbus.Bus
	Logger Logger
}

// Server accepts websocket connections. The handshake is authorized before
// the upgrade; session termination events close affected channels.
type Server struct {
	gate     *Gate
	hub      *Hub
	audit    *audit.Recorder
	bus      *eventbus.Bus
	logger   Logger
	upgrader websocket.Upgrader
	srv      *http.Server
}

func NewServer(opts Options) (*Server, error) {
	switch {
	case opts.Gate == nil:
		return nil, errors.New("realtime server requires the handshake gate")
	case opts.Hub == nil:
		return nil, errors.New("realtime server requires a hub")
	case opts.Audit == nil:
		return nil, errors.New("realtime server requires the audit recorder")
	case opts.Logger == nil:
		return nil, errors.New("realtime server requires a logger")
	}

	s := &Server{
		gate:   opts.Gate,
		hub:    opts.Hub,
		audit:  opts.Audit,
		bus:    opts.Bus,
		logger: opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is delegated to the deployment proxy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	s.srv = &http.Server{
		Addr:              opts.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.bus != nil {
		if err := s.bus.Subscribe(eventbus.TopicSessionTerminated, s.onSessionTerminated); err != nil {
			return nil, fmt.Errorf("subscribe session events: %w", err)
		}
		if err := s.bus.Subscribe(audit.TopicEvent, s.onAuditEvent); err != nil {
			return nil, fmt.Errorf("subscribe audit events: %w", err)
		}
	}
	return s, nil
}

// securityNotice is the payload pushed to a user's channels when a
// security-relevant event concerns them.
type securityNotice struct {
	Type     string         `json:"type"`
	Action   audit.Action   `json:"action"`
	Severity audit.Severity `json:"severity"`
	Outcome  audit.Outcome  `json:"outcome"`
	At       time.Time      `json:"at"`
}

// onAuditEvent fans security notices out to the affected user. Routine info
// events stay in the audit log only; warnings and above reach the user's open
// channels so a lockout or forced termination is visible immediately.
func (s *Server) onAuditEvent(event audit.Event) {
	if event.ActorID == nil || event.Severity == audit.SeverityInfo {
		return
	}

	payload, err := json.Marshal(securityNotice{
		Type:     "security_notice",
		Action:   event.Action,
		Severity: event.Severity,
		Outcome:  event.Outcome,
		At:       event.At,
	})
	if err != nil {
		s.logger.Error("failed to encode security notice: %v", err)
		return
	}
	if n := s.hub.PushToUser(*event.ActorID, payload); n > 0 {
		s.logger.Debug("Realtime pushed %s notice to %d channels of user %d", event.Action, n, *event.ActorID)
	}
}

// onSessionTerminated severs channels bound to the terminated session. An
// empty session id means every session of the user was revoked.
func (s *Server) onSessionTerminated(userID uint, sessionID string) {
	if sessionID == "" {
		s.hub.CloseUser(userID)
		return
	}
	s.hub.CloseSession(sessionID)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ctx, endSpan := observability.StartSpan(r.Context(), "realtime", "handshake")
	identity, sessionID, err := s.gate.Authorize(ctx, r)
	endSpan(err)
	if err != nil {
		status, code := denialStatus(err)
		s.audit.Record(r.Context(), audit.Event{
			Action:   audit.ActionRealtimeDenied,
			Severity: audit.SeverityWarning,
			Outcome:  audit.OutcomeFailure,
			Origin:   model.Origin{IP: r.RemoteAddr, UserAgent: r.UserAgent()},
			Detail:   audit.FailureDetail{Reason: code},
		})
		writeDenial(w, status, code)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed for user %d: %v", identity.ID, err)
		return
	}

	c := newConnection(conn, identity, sessionID, s.logger)
	s.hub.Register(c)
	s.audit.Record(r.Context(), audit.Event{
		ActorID:   &identity.ID,
		Action:    audit.ActionRealtimeConnect,
		Outcome:   audit.OutcomeSuccess,
		SessionID: sessionID,
		Origin:    model.Origin{IP: r.RemoteAddr, UserAgent: r.UserAgent()},
	})
	s.logger.Info("Realtime channel opened, user %d session %s", identity.ID, sessionID)

	go c.writePump()
	go c.readPump(func(closed *Connection) {
		s.hub.Unregister(closed)
		s.logger.Debug("Realtime channel closed, user %d session %s", closed.identity.ID, closed.sessionID)
	})
}

func denialStatus(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized, "missing_token"
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid_token"
	case errors.Is(err, auth.ErrNoSession):
		return http.StatusUnauthorized, "no_session"
	case errors.Is(err, session.ErrTerminated):
		return http.StatusUnauthorized, "session_terminated"
	case errors.Is(err, session.ErrExpired):
		return http.StatusUnauthorized, "session_expired"
	case errors.Is(err, session.ErrTimedOut):
		return http.StatusUnauthorized, "session_timed_out"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeDenial(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"code":    code,
	})
}

// Run serves until the context is cancelled, then closes every channel.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Realtime server listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("realtime server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	if s.bus != nil {
		_ = s.bus.Unsubscribe(eventbus.TopicSessionTerminated, s.onSessionTerminated)
		_ = s.bus.Unsubscribe(audit.TopicEvent, s.onAuditEvent)
	}
	s.hub.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("realtime shutdown: %w", err)
	}
	s.logger.Info("Realtime server stopped")
	return <-errCh
}
