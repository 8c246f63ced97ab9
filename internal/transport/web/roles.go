package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"worklog-server-go/internal/domain/auth/model"
)

// RequireRole allows the request through only when the authenticated identity
// holds one of the listed roles. It must run after RequestGate.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identityFrom(c)
		if !ok {
			abortError(c, http.StatusUnauthorized, CodeUnauthenticated, "authentication required")
			return
		}
		if !identity.Role.In(roles...) {
			abortError(c, http.StatusForbidden, CodeForbidden, "operation not permitted for role")
			return
		}
		c.Next()
	}
}
