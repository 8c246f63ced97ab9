package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"worklog-server-go/internal/domain/audit"
	"worklog-server-go/internal/domain/auth/model"
)

type provisionRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
}

func (h *Handlers) provisionUser(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, CodeUnauthenticated, "authentication required")
		return
	}

	var req provisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "email, name, password and role are required")
		return
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "unknown role")
		return
	}

	created, err := h.auth.ProvisionUser(c.Request.Context(), actor, req.Email, req.Name, req.Password, role)
	if err != nil {
		h.logger.Error("user provisioning failed: %v", err)
		respondError(c, http.StatusInternalServerError, "internal_error", "could not create user")
		return
	}
	respondOK(c, userView{
		ID:    created.ID,
		Email: created.Email,
		Name:  created.Name,
		Role:  created.Role.String(),
	})
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handlers) setAccountStatus(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, CodeUnauthenticated, "authentication required")
		return
	}
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "invalid user id")
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "status is required")
		return
	}
	status, err := model.ParseAccountStatus(req.Status)
	if err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "unknown status")
		return
	}

	if err := h.auth.SetAccountStatus(c.Request.Context(), actor, uint(userID), status); err != nil {
		h.logger.Error("status change failed for user %d: %v", userID, err)
		respondError(c, http.StatusInternalServerError, "internal_error", "could not update status")
		return
	}
	respondOK(c, gin.H{"user_id": userID, "status": status.String()})
}

// terminateUserSessions is the explicit admin action that revokes access
// immediately; suspending an account alone leaves live sessions running until
// they time out.
func (h *Handlers) terminateUserSessions(c *gin.Context) {
	actor, ok := identityFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, CodeUnauthenticated, "authentication required")
		return
	}
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "invalid user id")
		return
	}

	removed, err := h.auth.TerminateAllSessions(c.Request.Context(), actor, uint(userID), originFrom(c))
	if err != nil {
		h.logger.Error("bulk termination failed for user %d: %v", userID, err)
		respondError(c, http.StatusInternalServerError, "internal_error", "could not terminate sessions")
		return
	}
	respondOK(c, gin.H{"user_id": userID, "terminated": removed})
}

func (h *Handlers) queryAudit(c *gin.Context) {
	filter := audit.QueryFilter{
		Action: audit.Action(c.Query("action")),
	}
	if raw := c.Query("actor_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, http.StatusBadRequest, "bad_request", "invalid actor_id")
			return
		}
		actorID := uint(id)
		filter.ActorID = &actorID
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "bad_request", "since must be RFC3339")
			return
		}
		filter.Since = since
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "bad_request", "invalid limit")
			return
		}
		filter.Limit = limit
	}

	records, err := audit.Query(c.Request.Context(), h.db.Gorm(), filter)
	if err != nil {
		h.logger.Error("audit query failed: %v", err)
		respondError(c, http.StatusInternalServerError, "internal_error", "audit query failed")
		return
	}
	respondOK(c, gin.H{"events": records, "count": len(records)})
}

func (h *Handlers) systemStatus(c *gin.Context) {
	status := gin.H{
		"started_at": h.startedAt,
		"uptime_s":   int64(time.Since(h.startedAt).Seconds()),
	}

	if count, err := h.sessions.Count(c.Request.Context()); err == nil {
		status["active_sessions"] = count
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		status["cpu_percent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		status["mem_used_percent"] = vm.UsedPercent
	}
	if info, err := host.Info(); err == nil {
		status["hostname"] = info.Hostname
		status["os"] = info.OS
	}

	respondOK(c, status)
}
