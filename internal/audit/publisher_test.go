package audit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "tenderdesk/pkg/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublisher_SyncMode(t *testing.T) {
	store := NewInMemoryStore(16)
	pub := NewPublisher(store, discardLogger())
	defer pub.Close()

	userID := id.NewUserID()
	err := pub.Emit(context.Background(), Event{
		Timestamp: time.Now(),
		UserID:    userID,
		Action:    string(EventLoginSucceeded),
	})
	require.NoError(t, err)

	events, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(EventLoginSucceeded), events[0].Action)
	assert.Equal(t, userID, events[0].UserID)
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := NewInMemoryStore(16)
	pub := NewPublisher(store, discardLogger(), WithAsyncBuffer(8))

	for range_i := 0; range_i < 5; range_i++ {
		require.NoError(t, pub.Emit(context.Background(), Event{Action: string(EventSessionRevoked)}))
	}

	// Close flushes the buffer before returning.
	pub.Close()

	events, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, events, 5)
}

func TestStore_BoundedRetention(t *testing.T) {
	store := NewInMemoryStore(3)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(context.Background(), Event{Reason: string(rune('a' + i))}))
	}

	events, err := store.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	// Newest first.
	assert.Equal(t, "e", events[0].Reason)
	assert.Equal(t, "c", events[2].Reason)
}
