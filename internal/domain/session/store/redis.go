package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"worklog-server-go/internal/domain/session/model"
)

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedis builds a redis-backed session store. Hard expiry is delegated to
// key TTLs; the inactivity check stays with the caller, which reads
// last_active from the stored payload.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil || cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis store requires an address")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "worklog:"
	}

	return &redisStore{
		client: client,
		prefix: prefix,
	}, nil
}

// NewRedisWithClient wires an existing client, used by tests with miniredis.
func NewRedisWithClient(client *redis.Client, prefix string) Store {
	if prefix == "" {
		prefix = "worklog:"
	}
	return &redisStore{client: client, prefix: prefix}
}

func (s *redisStore) sessionKey(id string) string {
	return s.prefix + "session:" + id
}

func (s *redisStore) userKey(userID uint) string {
	return fmt.Sprintf("%suser:%d:sessions", s.prefix, userID)
}

func (s *redisStore) Create(ctx context.Context, sess model.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("session id required")
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sessionKey(sess.ID), payload, ttl)
	pipe.SAdd(ctx, s.userKey(sess.UserID), sess.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *redisStore) Find(ctx context.Context, id string) (model.Session, error) {
	data, err := s.client.Get(ctx, s.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		return model.Session{}, err
	}

	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return model.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return sess, nil
}

// Touch rewrites the payload with SET XX KEEPTTL so a concurrently deleted
// session is never resurrected.
func (s *redisStore) Touch(ctx context.Context, id string, at time.Time) error {
	sess, err := s.Find(ctx, id)
	if err != nil {
		return err
	}
	sess.LastActive = at

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ok, err := s.client.SetXX(ctx, s.sessionKey(id), payload, redis.KeepTTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, id string) error {
	sess, err := s.Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.sessionKey(id))
	pipe.SRem(ctx, s.userKey(sess.UserID), id)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *redisStore) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	ids, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return 0, err
	}

	var removed int64
	for _, id := range ids {
		deleted, err := s.client.Del(ctx, s.sessionKey(id)).Result()
		if err != nil {
			return removed, err
		}
		removed += deleted
	}
	if err := s.client.Del(ctx, s.userKey(userID)).Err(); err != nil {
		return removed, err
	}
	return removed, nil
}

func (s *redisStore) ListByUser(ctx context.Context, userID uint) ([]model.Session, error) {
	ids, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	var sessions []model.Session
	for _, id := range ids {
		sess, err := s.Find(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Expired key still referenced by the index; prune it.
			_ = s.client.SRem(ctx, s.userKey(userID), id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// CleanupExpired prunes index entries whose session keys have lapsed; the
// session payloads themselves expire via TTL.
func (s *redisStore) CleanupExpired(ctx context.Context, _ time.Time) (int64, error) {
	var pruned int64
	iter := s.client.Scan(ctx, 0, s.prefix+"user:*:sessions", 0).Iterator()
	for iter.Next(ctx) {
		userKey := iter.Val()
		ids, err := s.client.SMembers(ctx, userKey).Result()
		if err != nil {
			return pruned, err
		}
		for _, id := range ids {
			exists, err := s.client.Exists(ctx, s.sessionKey(id)).Result()
			if err != nil {
				return pruned, err
			}
			if exists == 0 {
				if err := s.client.SRem(ctx, userKey, id).Err(); err != nil {
					return pruned, err
				}
				pruned++
			}
		}
	}
	return pruned, iter.Err()
}

func (s *redisStore) Count(ctx context.Context) (int64, error) {
	var total int64
	iter := s.client.Scan(ctx, 0, s.prefix+"session:*", 0).Iterator()
	for iter.Next(ctx) {
		total++
	}
	return total, iter.Err()
}

func (s *redisStore) Close(context.Context) error {
	return s.client.Close()
}
