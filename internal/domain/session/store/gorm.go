package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"worklog-server-go/internal/domain/session/model"
	"worklog-server-go/internal/platform/storage"
)

type gormStore struct {
	db *gorm.DB
}

// NewGorm builds a session store over the shared durable database. This is the
// default backend: every check re-reads current state so terminate/expire
// actions are visible across serving processes.
func NewGorm(db *gorm.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm store requires database handle")
	}
	return &gormStore{db: db}, nil
}

func (s *gormStore) Create(ctx context.Context, sess model.Session) error {
	record := &storage.SessionRecord{
		ID:         sess.ID,
		UserID:     sess.UserID,
		IP:         sess.IP,
		UserAgent:  sess.UserAgent,
		CreatedAt:  sess.CreatedAt,
		LastActive: sess.LastActive,
		ExpiresAt:  sess.ExpiresAt,
	}
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *gormStore) Find(ctx context.Context, id string) (model.Session, error) {
	var record storage.SessionRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	return fromRecord(record), nil
}

// Touch issues an UPDATE by primary key; zero rows affected means the session
// was concurrently terminated, which must not resurrect it.
func (s *gormStore) Touch(ctx context.Context, id string, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&storage.SessionRecord{}).
		Where("id = ?", id).
		Update("last_active", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&storage.SessionRecord{}).Error
}

func (s *gormStore) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&storage.SessionRecord{})
	return result.RowsAffected, result.Error
}

func (s *gormStore) ListByUser(ctx context.Context, userID uint) ([]model.Session, error) {
	var records []storage.SessionRecord
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	sessions := make([]model.Session, 0, len(records))
	for _, record := range records {
		sessions = append(sessions, fromRecord(record))
	}
	return sessions, nil
}

func (s *gormStore) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&storage.SessionRecord{})
	return result.RowsAffected, result.Error
}

func (s *gormStore) Count(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&storage.SessionRecord{}).Count(&total).Error
	return total, err
}

func (s *gormStore) Close(context.Context) error {
	// The database handle is owned by bootstrap.
	return nil
}

func fromRecord(record storage.SessionRecord) model.Session {
	return model.Session{
		ID:         record.ID,
		UserID:     record.UserID,
		IP:         record.IP,
		UserAgent:  record.UserAgent,
		CreatedAt:  record.CreatedAt,
		LastActive: record.LastActive,
		ExpiresAt:  record.ExpiresAt,
	}
}
