package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration) (*RedisChannelStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisChannelStore(client, ttl), mr
}

func TestChannelStoreRegisterReplacesPrevious(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()
	patient := uuid.New()

	require.NoError(t, store.Register(ctx, patient, Channel{Platform: "ios", Token: "old"}))
	require.NoError(t, store.Register(ctx, patient, Channel{Platform: "android", Token: " new "}))

	ch, err := store.Lookup(ctx, patient)
	require.NoError(t, err)
	assert.Equal(t, "android", ch.Platform)
	assert.Equal(t, "new", ch.Token)
	assert.False(t, ch.RegisteredAt.IsZero())
}

func TestChannelStoreLookupMissing(t *testing.T) {
	store, _ := newTestStore(t, 0)

	_, err := store.Lookup(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNoChannel)
}

func TestChannelStoreRemove(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()
	patient := uuid.New()

	require.NoError(t, store.Register(ctx, patient, Channel{Platform: "ios", Token: "t"}))
	require.NoError(t, store.Remove(ctx, patient))

	_, err := store.Lookup(ctx, patient)
	assert.ErrorIs(t, err, ErrNoChannel)
	assert.ErrorIs(t, store.Remove(ctx, patient), ErrNoChannel)
}

func TestChannelStoreRejectsEmptyToken(t *testing.T) {
	store, _ := newTestStore(t, 0)

	err := store.Register(context.Background(), uuid.New(), Channel{Platform: "ios", Token: "  "})
	assert.ErrorIs(t, err, ErrInvalidChannel)
}

func TestChannelStoreTTL(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()
	patient := uuid.New()

	require.NoError(t, store.Register(ctx, patient, Channel{Platform: "ios", Token: "t"}))
	assert.Equal(t, time.Hour, mr.TTL(channelKey(patient)))

	mr.FastForward(2 * time.Hour)
	_, err := store.Lookup(ctx, patient)
	assert.ErrorIs(t, err, ErrNoChannel)
}
