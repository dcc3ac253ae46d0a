package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/clinic-appointment-engine/internal/apperr"
)

var (
	ErrNoChannel      = fmt.Errorf("notification channel %w", apperr.ErrNotFound)
	ErrInvalidChannel = fmt.Errorf("channel token is required: %w", apperr.ErrInvalidInput)
)

// ChannelStore keeps one active channel per patient. Registering replaces
// the previous one.
type ChannelStore interface {
	Register(ctx context.Context, patientID uuid.UUID, ch Channel) error
	Lookup(ctx context.Context, patientID uuid.UUID) (*Channel, error)
	Remove(ctx context.Context, patientID uuid.UUID) error
}

type RedisChannelStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisChannelStore stores channels under notify:channel:<patient>. A zero
// ttl keeps them until removed.
func NewRedisChannelStore(client *redis.Client, ttl time.Duration) *RedisChannelStore {
	return &RedisChannelStore{client: client, ttl: ttl}
}

func channelKey(patientID uuid.UUID) string {
	return "notify:channel:" + patientID.String()
}

func (s *RedisChannelStore) Register(ctx context.Context, patientID uuid.UUID, ch Channel) error {
	ch.Token = strings.TrimSpace(ch.Token)
	if ch.Token == "" {
		return ErrInvalidChannel
	}
	if ch.RegisteredAt.IsZero() {
		ch.RegisteredAt = time.Now().UTC()
	}
	data, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("marshal channel: %w", err)
	}
	if err := s.client.Set(ctx, channelKey(patientID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store channel: %w", err)
	}
	return nil
}

func (s *RedisChannelStore) Lookup(ctx context.Context, patientID uuid.UUID) (*Channel, error) {
	data, err := s.client.Get(ctx, channelKey(patientID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoChannel
		}
		return nil, fmt.Errorf("load channel: %w", err)
	}
	var ch Channel
	if err := json.Unmarshal(data, &ch); err != nil {
		return nil, fmt.Errorf("decode channel: %w", err)
	}
	return &ch, nil
}

func (s *RedisChannelStore) Remove(ctx context.Context, patientID uuid.UUID) error {
	n, err := s.client.Del(ctx, channelKey(patientID)).Result()
	if err != nil {
		return fmt.Errorf("remove channel: %w", err)
	}
	if n == 0 {
		return ErrNoChannel
	}
	return nil
}
