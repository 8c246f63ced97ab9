package web

import (
	"time"

	"github.com/gin-gonic/gin"
)

// externalStatus is the machine-client health endpoint. It exposes no user
// data; the external surface is gated by client key only.
func (h *Handlers) externalStatus(c *gin.Context) {
	respondOK(c, gin.H{
		"service":  "worklog-server",
		"time":     time.Now().UTC(),
		"uptime_s": int64(time.Since(h.startedAt).Seconds()),
	})
}
