package web

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"worklog-server-go/internal/domain/audit"
)

// ClientKeyHeader authenticates machine clients on the external surface.
const ClientKeyHeader = "X-Client-Key"

// ExternalClientGate validates the shared client key in constant time. The
// check runs before any session or role logic: external endpoints never see
// user credentials. An unconfigured key logs a warning per request and lets
// traffic through so a fresh deployment is not silently unreachable.
func ExternalClientGate(key string, recorder *audit.Recorder, logger Logger) gin.HandlerFunc {
	expected := []byte(key)

	return func(c *gin.Context) {
		if len(expected) == 0 {
			logger.Warn("external client key not configured, accepting unauthenticated client from %s", c.ClientIP())
			c.Next()
			return
		}

		presented := []byte(c.GetHeader(ClientKeyHeader))
		if len(presented) == 0 {
			recorder.Record(c.Request.Context(), audit.Event{
				Action:   audit.ActionExternalDenied,
				Severity: audit.SeverityWarning,
				Outcome:  audit.OutcomeFailure,
				Origin:   originFrom(c),
				Detail:   audit.FailureDetail{Reason: "client_key_missing"},
			})
			abortError(c, http.StatusForbidden, CodeMissingClientKey, "client key required")
			return
		}
		if subtle.ConstantTimeCompare(expected, presented) != 1 {
			recorder.Record(c.Request.Context(), audit.Event{
				Action:   audit.ActionExternalDenied,
				Severity: audit.SeverityWarning,
				Outcome:  audit.OutcomeFailure,
				Origin:   originFrom(c),
				Detail:   audit.FailureDetail{Reason: "client_key_mismatch"},
			})
			abortError(c, http.StatusForbidden, CodeInvalidClientKey, "invalid client key")
			return
		}
		c.Next()
	}
}
