package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope for every JSON endpoint. Code carries a
// machine-readable reason on failures; clients branch on it, not on Message.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Logger provides the minimal logging contract required by the web layer.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, APIResponse{Success: false, Code: code, Message: message})
}

// abortError writes the failure response and stops the handler chain.
func abortError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, APIResponse{Success: false, Code: code, Message: message})
}
