package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tenderdesk/pkg/platform/sentinel"
)

const sessionKeyPrefix = "td:sess:"

// RedisStore is the Redis-backed session store. Redis handles expiry via key
// TTLs, so IsActive reduces to an existence check. Recommended when several
// server processes must share revocation state.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed session store. The client
// lifecycle is managed externally.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

func (s *RedisStore) Record(ctx context.Context, session Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired: %w", sentinel.ErrInvalidState)
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	ok, err := s.client.SetNX(ctx, sessionKey(session.Token), payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisStore) IsActive(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return n == 1, nil
}

func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *RedisStore) RevokeAll(ctx context.Context, exceptToken string) (int, error) {
	revoked := 0
	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if key == sessionKey(exceptToken) {
			continue
		}
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return revoked, fmt.Errorf("revoke session: %w", err)
		}
		revoked++
	}
	if err := iter.Err(); err != nil {
		return revoked, fmt.Errorf("scan sessions: %w", err)
	}
	return revoked, nil
}

func (s *RedisStore) List(ctx context.Context) ([]Session, error) {
	var sessions []Session
	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		payload, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			// Expired between SCAN and GET.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
		var session Session
		if err := json.Unmarshal(payload, &session); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	return sessions, nil
}
