package web

import (
	"errors"
	"time"

	"worklog-server-go/internal/domain/auth"
	"worklog-server-go/internal/domain/session"
	"worklog-server-go/internal/platform/storage"
)

// Handlers groups the HTTP endpoint implementations and their dependencies.
// Audit writes happen inside the auth service and the gates, not here.
type Handlers struct {
	auth      *auth.Service
	sessions  *session.Manager
	db        *storage.Database
	logger    Logger
	startedAt time.Time
}

// HandlerOptions wires the endpoint handlers.
type HandlerOptions struct {
	Auth     *auth.Service
	Sessions *session.Manager
	Database *storage.Database
	Logger   Logger
}

func NewHandlers(opts HandlerOptions) (*Handlers, error) {
	switch {
	case opts.Auth == nil:
		return nil, errors.New("handlers require the auth service")
	case opts.Sessions == nil:
		return nil, errors.New("handlers require the session manager")
	case opts.Database == nil:
		return nil, errors.New("handlers require the database handle")
	case opts.Logger == nil:
		return nil, errors.New("handlers require a logger")
	}
	return &Handlers{
		auth:      opts.Auth,
		sessions:  opts.Sessions,
		db:        opts.Database,
		logger:    opts.Logger,
		startedAt: time.Now(),
	}, nil
}
