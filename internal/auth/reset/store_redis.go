package reset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tenderdesk/pkg/email"
	"tenderdesk/pkg/platform/sentinel"
)

const challengeKeyPrefix = "td:reset:"

// RedisChallengeStore persists reset challenges in Redis with a key TTL
// matching the challenge expiry. Consume runs under WATCH so concurrent
// completions cannot both succeed.
type RedisChallengeStore struct {
	client *redis.Client
}

// NewRedisChallengeStore constructs a Redis-backed challenge store.
func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{client: client}
}

func challengeKey(addr string) string {
	return challengeKeyPrefix + email.Normalize(addr)
}

func (s *RedisChallengeStore) Put(ctx context.Context, challenge Challenge) error {
	ttl := time.Until(challenge.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("challenge already expired: %w", sentinel.ErrInvalidState)
	}

	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("encode challenge: %w", err)
	}

	// Plain SET replaces any prior challenge for the email.
	if err := s.client.Set(ctx, challengeKey(challenge.Email), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}
	return nil
}

func (s *RedisChallengeStore) Get(ctx context.Context, addr string) (Challenge, error) {
	payload, err := s.client.Get(ctx, challengeKey(addr)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Challenge{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Challenge{}, fmt.Errorf("load challenge: %w", err)
	}

	var challenge Challenge
	if err := json.Unmarshal(payload, &challenge); err != nil {
		return Challenge{}, fmt.Errorf("decode challenge: %w", err)
	}
	return challenge, nil
}

func (s *RedisChallengeStore) Consume(ctx context.Context, addr string, now time.Time, match func(codeHash string) bool) error {
	const maxRetries = 4
	key := challengeKey(addr)

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			payload, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return sentinel.ErrNotFound
			}
			if err != nil {
				return err
			}

			var challenge Challenge
			if err := json.Unmarshal(payload, &challenge); err != nil {
				return fmt.Errorf("decode challenge: %w", err)
			}

			if challenge.Consumed {
				return sentinel.ErrAlreadyUsed
			}
			if !now.Before(challenge.ExpiresAt) {
				_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return sentinel.ErrExpired
			}
			if !match(challenge.CodeHash) {
				return sentinel.ErrNotFound
			}

			challenge.Consumed = true
			updated, err := json.Marshal(challenge)
			if err != nil {
				return fmt.Errorf("encode challenge: %w", err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, redis.KeepTTL)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			// Lost the race against a concurrent mutation; retry.
			continue
		}
		return err
	}

	return fmt.Errorf("consume challenge: too many concurrent mutations: %w", sentinel.ErrUnavailable)
}
