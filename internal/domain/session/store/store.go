package store

import (
	"context"
	"errors"
	"time"

	"worklog-server-go/internal/domain/session/model"
)

// ErrNotFound is returned when a session id has no record. Terminated and
// hard-expired sessions are indistinguishable at this level.
var ErrNotFound = errors.New("session not found")

// Store is the single source of truth for "is this token still usable".
// Implementations must update records in place only: touching a deleted
// session must never recreate it.
type Store interface {
	Create(ctx context.Context, s model.Session) error
	Find(ctx context.Context, id string) (model.Session, error)
	Touch(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID uint) (int64, error)
	ListByUser(ctx context.Context, userID uint) ([]model.Session, error)
	CleanupExpired(ctx context.Context, now time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
	Close(ctx context.Context) error
}

// Config describes the high level store selection parameters.
type Config struct {
	Driver string
	Redis  *RedisConfig
}

// RedisConfig captures connection options for the redis backend.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}
