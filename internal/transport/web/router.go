package web

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"

	"worklog-server-go/internal/domain/auth/model"
	"worklog-server-go/internal/platform/observability"
)

// RouterOptions wires the route tree.
type RouterOptions struct {
	Handlers     *Handlers
	Gate         gin.HandlerFunc
	ExternalGate gin.HandlerFunc
	Logger       Logger
	StaticDir    string
}

// BuildRouter assembles the full route tree: public auth endpoints, the
// secured user and admin groups behind the request gate, and the external
// machine-client surface behind the client-key gate.
func BuildRouter(opts RouterOptions) (*gin.Engine, error) {
	switch {
	case opts.Handlers == nil:
		return nil, errors.New("router requires handlers")
	case opts.Gate == nil:
		return nil, errors.New("router requires the request gate")
	case opts.ExternalGate == nil:
		return nil, errors.New("router requires the external gate")
	case opts.Logger == nil:
		return nil, errors.New("router requires a logger")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(opts.Logger))
	router.Use(instrumentation())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", ClientKeyHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	if opts.StaticDir != "" {
		router.Use(static.Serve("/", static.LocalFile(opts.StaticDir, true)))
	}

	h := opts.Handlers
	api := router.Group("/api")

	// Login is the only credentialed entry point; everything else on the user
	// surface requires a live session.
	api.POST("/auth/login", h.login)

	secured := api.Group("")
	secured.Use(opts.Gate)
	{
		secured.POST("/auth/logout", h.logout)
		secured.POST("/auth/password", h.changePassword)
		secured.GET("/auth/sessions", h.listOwnSessions)
		secured.DELETE("/auth/sessions/:id", h.terminateOwnSession)
	}

	admin := secured.Group("/admin")
	admin.Use(RequireRole(model.RoleAdmin))
	{
		admin.POST("/users", h.provisionUser)
		admin.PUT("/users/:id/status", h.setAccountStatus)
		admin.DELETE("/users/:id/sessions", h.terminateUserSessions)
		admin.GET("/audit", h.queryAudit)
		admin.GET("/system", h.systemStatus)
	}

	external := api.Group("/external")
	external.Use(opts.ExternalGate)
	{
		external.GET("/status", h.externalStatus)
	}

	return router, nil
}

// instrumentation wraps each request in a span and emits a per-route counter.
// A no-op unless observability is enabled.
func instrumentation() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !observability.Enabled() {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, end := observability.StartSpan(c.Request.Context(), "http", c.Request.Method+" "+route)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		var failure error
		if status >= 500 {
			failure = fmt.Errorf("status %d", status)
		}
		end(failure)
		observability.RecordMetric(ctx, "http_requests", 1, map[string]string{
			"route":  route,
			"status": strconv.Itoa(status),
		})
	}
}

func requestLogger(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		if status >= 500 {
			logger.Error("HTTP %s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path, status, latency)
		} else {
			logger.Debug("HTTP %s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path, status, latency)
		}
	}
}
