package auth

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"worklog-server-go/internal/domain/auth/model"
	"worklog-server-go/internal/platform/storage"
)

// AttemptLog stores immutable login attempt facts. Attempts are only ever
// appended and counted; retention is an external concern.
type AttemptLog interface {
	Append(ctx context.Context, attempt model.LoginAttempt) error
	CountFailedSince(ctx context.Context, email string, since time.Time) (int64, error)
}

type gormAttemptLog struct {
	db *gorm.DB
}

// NewGormAttemptLog persists attempts in the shared durable database.
func NewGormAttemptLog(db *gorm.DB) (AttemptLog, error) {
	if db == nil {
		return nil, fmt.Errorf("attempt log requires database handle")
	}
	return &gormAttemptLog{db: db}, nil
}

func (l *gormAttemptLog) Append(ctx context.Context, attempt model.LoginAttempt) error {
	at := attempt.At
	if at.IsZero() {
		at = time.Now()
	}
	record := &storage.LoginAttemptRecord{
		Email:         NormalizeEmail(attempt.Email),
		Success:       attempt.Success,
		FailureReason: attempt.FailureReason,
		IP:            attempt.Origin.IP,
		UserAgent:     attempt.Origin.UserAgent,
		CreatedAt:     at,
	}
	return l.db.WithContext(ctx).Create(record).Error
}

func (l *gormAttemptLog) CountFailedSince(ctx context.Context, email string, since time.Time) (int64, error) {
	var count int64
	err := l.db.WithContext(ctx).
		Model(&storage.LoginAttemptRecord{}).
		Where("email = ? AND success = ? AND created_at >= ?", NormalizeEmail(email), false, since).
		Count(&count).Error
	return count, err
}
