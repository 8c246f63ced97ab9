package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"worklog-server-go/internal/domain/session/model"
)

type memoryStore struct {
	items map[string]model.Session
	mutex sync.RWMutex
}

// NewMemory builds an in-memory session store. Intended for tests and
// single-process deployments; state does not survive a restart.
func NewMemory() Store {
	return &memoryStore{
		items: make(map[string]model.Session),
	}
}

func (s *memoryStore) Create(_ context.Context, sess model.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("session id required")
	}

	s.mutex.Lock()
	s.items[sess.ID] = sess
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Find(_ context.Context, id string) (model.Session, error) {
	s.mutex.RLock()
	sess, ok := s.items[id]
	s.mutex.RUnlock()
	if !ok {
		return model.Session{}, ErrNotFound
	}
	return sess, nil
}

// Touch updates in place only; a deleted session stays deleted.
func (s *memoryStore) Touch(_ context.Context, id string, at time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sess, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	sess.LastActive = at
	s.items[id] = sess
	return nil
}

func (s *memoryStore) Delete(_ context.Context, id string) error {
	s.mutex.Lock()
	delete(s.items, id)
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) DeleteByUser(_ context.Context, userID uint) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var removed int64
	for id, sess := range s.items {
		if sess.UserID == userID {
			delete(s.items, id)
			removed++
		}
	}
	return removed, nil
}

func (s *memoryStore) ListByUser(_ context.Context, userID uint) ([]model.Session, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var sessions []model.Session
	for _, sess := range s.items {
		if sess.UserID == userID {
			sessions = append(sessions, sess)
		}
	}
	return sessions, nil
}

func (s *memoryStore) CleanupExpired(_ context.Context, now time.Time) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var removed int64
	for id, sess := range s.items {
		if sess.HardExpired(now) {
			delete(s.items, id)
			removed++
		}
	}
	return removed, nil
}

func (s *memoryStore) Count(_ context.Context) (int64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return int64(len(s.items)), nil
}

func (s *memoryStore) Close(_ context.Context) error {
	return nil
}
