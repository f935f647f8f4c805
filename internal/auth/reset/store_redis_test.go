package reset

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenderdesk/internal/auth/secrets"
	"tenderdesk/pkg/platform/sentinel"
)

func newRedisChallengeStore(t *testing.T) (*RedisChallengeStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisChallengeStore(client), mr
}

func TestRedisChallengeStore_PutReplacesPrior(t *testing.T) {
	store, _ := newRedisChallengeStore(t)

	firstHash := secrets.HashCode("111111")
	secondHash := secrets.HashCode("222222")

	require.NoError(t, store.Put(context.Background(), Challenge{
		Email:     "user@example.com",
		CodeHash:  firstHash,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}))
	require.NoError(t, store.Put(context.Background(), Challenge{
		Email:     "User@Example.com",
		CodeHash:  secondHash,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}))

	challenge, err := store.Get(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, secondHash, challenge.CodeHash, "new request must invalidate the prior code")
}

func TestRedisChallengeStore_ConsumeOnce(t *testing.T) {
	store, _ := newRedisChallengeStore(t)

	hash := secrets.HashCode("123456")
	require.NoError(t, store.Put(context.Background(), Challenge{
		Email:     "user@example.com",
		CodeHash:  hash,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}))

	match := func(codeHash string) bool { return secrets.CodeMatches("123456", codeHash) }

	require.NoError(t, store.Consume(context.Background(), "user@example.com", time.Now(), match))

	err := store.Consume(context.Background(), "user@example.com", time.Now(), match)
	require.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
}

func TestRedisChallengeStore_ConsumeMismatchAndExpiry(t *testing.T) {
	store, mr := newRedisChallengeStore(t)

	require.NoError(t, store.Put(context.Background(), Challenge{
		Email:     "user@example.com",
		CodeHash:  secrets.HashCode("123456"),
		ExpiresAt: time.Now().Add(time.Minute),
	}))

	err := store.Consume(context.Background(), "user@example.com", time.Now(),
		func(codeHash string) bool { return false })
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	// Redis TTL drops the key entirely after expiry.
	mr.FastForward(2 * time.Minute)
	_, err = store.Get(context.Background(), "user@example.com")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestRedisChallengeStore_ConsumeHonorsLogicalExpiry(t *testing.T) {
	store, _ := newRedisChallengeStore(t)

	require.NoError(t, store.Put(context.Background(), Challenge{
		Email:     "user@example.com",
		CodeHash:  secrets.HashCode("123456"),
		ExpiresAt: time.Now().Add(time.Minute),
	}))

	// The request-scoped clock is past the logical expiry even though the
	// Redis key still exists.
	err := store.Consume(context.Background(), "user@example.com", time.Now().Add(2*time.Minute),
		func(codeHash string) bool { return true })
	require.ErrorIs(t, err, sentinel.ErrExpired)
}
