package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"worklog-server-go/internal/domain/auth/model"
)

func rolesEngine(identity *model.Identity, allowed ...model.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		if identity != nil {
			c.Set(ContextIdentity, *identity)
		}
	})
	engine.GET("/admin", RequireRole(allowed...), func(c *gin.Context) {
		respondOK(c, gin.H{"ok": true})
	})
	return engine
}

func doRolesRequest(t *testing.T, engine *gin.Engine) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var body APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rec, body
}

func TestRequireRoleAllows(t *testing.T) {
	admin := model.Identity{ID: 1, Role: model.RoleAdmin}
	rec, _ := doRolesRequest(t, rolesEngine(&admin, model.RoleAdmin))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRoleRejectsLowerRole(t *testing.T) {
	member := model.Identity{ID: 2, Role: model.RoleMember}
	rec, body := doRolesRequest(t, rolesEngine(&member, model.RoleAdmin))
	if rec.Code != http.StatusForbidden || body.Code != CodeForbidden {
		t.Errorf("expected 403/%s, got %d/%s", CodeForbidden, rec.Code, body.Code)
	}
}

func TestRequireRoleAllowsAnyListed(t *testing.T) {
	manager := model.Identity{ID: 3, Role: model.RoleManager}
	rec, _ := doRolesRequest(t, rolesEngine(&manager, model.RoleManager, model.RoleAdmin))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRoleWithoutIdentity(t *testing.T) {
	rec, body := doRolesRequest(t, rolesEngine(nil, model.RoleAdmin))
	if rec.Code != http.StatusUnauthorized || body.Code != CodeUnauthenticated {
		t.Errorf("expected 401/%s, got %d/%s", CodeUnauthenticated, rec.Code, body.Code)
	}
}
