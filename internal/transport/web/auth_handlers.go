package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"worklog-server-go/internal/domain/auth"
	"worklog-server-go/internal/domain/session"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
	User      userView  `json:"user"`
}

type userView struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type sessionView struct {
	ID         string    `json:"id"`
	IP         string    `json:"ip"`
	UserAgent  string    `json:"user_agent"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
	ExpiresAt  time.Time `json:"expires_at"`
	Current    bool      `json:"current"`
}

func (h *Handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "email and password are required")
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, originFrom(c))
	if err != nil {
		var lockErr *auth.LockoutError
		switch {
		case errors.As(err, &lockErr):
			c.JSON(http.StatusLocked, APIResponse{
				Success: false,
				Code:    "account_locked",
				Message: "too many failed attempts, try again later",
				Data: gin.H{
					"failed_attempts": lockErr.FailedAttempts,
					"max_attempts":    lockErr.MaxAttempts,
				},
			})
		case errors.Is(err, auth.ErrAccountNotActive):
			// Login failures are 423 when locked, 401 for everything else.
			respondError(c, http.StatusUnauthorized, "account_not_active", "account is not active")
		case errors.Is(err, auth.ErrInvalidCredentials):
			respondError(c, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		default:
			h.logger.Error("login failed: %v", err)
			respondError(c, http.StatusInternalServerError, "internal_error", "login failed")
		}
		return
	}

	respondOK(c, loginResponse{
		Token:     result.Token,
		SessionID: result.SessionID,
		ExpiresAt: result.ExpiresAt,
		User: userView{
			ID:    result.Identity.ID,
			Email: result.Identity.Email,
			Name:  result.Identity.Name,
			Role:  result.Identity.Role.String(),
		},
	})
}

type logoutRequest struct {
	All bool `json:"all"`
}

func (h *Handlers) logout(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, CodeUnauthenticated, "authentication required")
		return
	}

	// The body is optional; `{"all": true}` signs out every device.
	var req logoutRequest
	_ = c.ShouldBindJSON(&req)

	if req.All {
		removed, err := h.auth.TerminateAllSessions(c.Request.Context(), identity, identity.ID, originFrom(c))
		if err != nil {
			h.logger.Error("logout-all failed for user %d: %v", identity.ID, err)
			respondError(c, http.StatusInternalServerError, "internal_error", "logout failed")
			return
		}
		respondOK(c, gin.H{"logged_out": true, "terminated": removed})
		return
	}

	if err := h.auth.Logout(c.Request.Context(), identity, sessionIDFrom(c), originFrom(c)); err != nil {
		h.logger.Error("logout failed for user %d: %v", identity.ID, err)
		respondError(c, http.StatusInternalServerError, "internal_error", "logout failed")
		return
	}
	respondOK(c, gin.H{"logged_out": true})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

func (h *Handlers) changePassword(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, CodeUnauthenticated, "authentication required")
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "current and new password are required, new password at least 8 characters")
		return
	}

	err := h.auth.ChangePassword(c.Request.Context(), identity, req.CurrentPassword, req.NewPassword, originFrom(c))
	if errors.Is(err, auth.ErrInvalidCredentials) {
		respondError(c, http.StatusUnauthorized, "invalid_credentials", "current password does not match")
		return
	}
	if err != nil {
		h.logger.Error("password change failed for user %d: %v", identity.ID, err)
		respondError(c, http.StatusInternalServerError, "internal_error", "password change failed")
		return
	}
	respondOK(c, gin.H{"changed": true})
}

func (h *Handlers) listOwnSessions(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, CodeUnauthenticated, "authentication required")
		return
	}

	sessions, err := h.auth.Sessions(c.Request.Context(), identity.ID)
	if err != nil {
		h.logger.Error("session listing failed for user %d: %v", identity.ID, err)
		respondError(c, http.StatusInternalServerError, "internal_error", "could not list sessions")
		return
	}

	current := sessionIDFrom(c)
	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{
			ID:         s.ID,
			IP:         s.IP,
			UserAgent:  s.UserAgent,
			CreatedAt:  s.CreatedAt,
			LastActive: s.LastActive,
			ExpiresAt:  s.ExpiresAt,
			Current:    s.ID == current,
		})
	}
	respondOK(c, gin.H{"sessions": views})
}

// terminateOwnSession lets a user revoke one of their own device sessions.
func (h *Handlers) terminateOwnSession(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, CodeUnauthenticated, "authentication required")
		return
	}
	targetID := c.Param("id")

	owned, err := h.auth.Sessions(c.Request.Context(), identity.ID)
	if err != nil {
		h.logger.Error("session lookup failed for user %d: %v", identity.ID, err)
		respondError(c, http.StatusInternalServerError, "internal_error", "could not terminate session")
		return
	}
	var found *session.Session
	for i := range owned {
		if owned[i].ID == targetID {
			found = &owned[i]
			break
		}
	}
	if found == nil {
		// Not distinguishing "someone else's session" from "no such session".
		respondError(c, http.StatusNotFound, "session_not_found", "session not found")
		return
	}

	if err := h.auth.Logout(c.Request.Context(), identity, targetID, originFrom(c)); err != nil {
		h.logger.Error("session termination failed for user %d: %v", identity.ID, err)
		respondError(c, http.StatusInternalServerError, "internal_error", "could not terminate session")
		return
	}
	respondOK(c, gin.H{"terminated": targetID})
}
