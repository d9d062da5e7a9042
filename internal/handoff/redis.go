package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

func NewRedisStore(client *redis.Client, baseTTL time.Duration) *RedisStore {
	if baseTTL <= 0 {
		baseTTL = 30 * time.Minute
	}
	return &RedisStore{
		client:  client,
		baseTTL: baseTTL,
	}
}

type RedisStore struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisStore) Load(ctx context.Context, scope string) (Handoff, error) {
	data, err := r.client.Get(ctx, handoffKey(scope)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Handoff{}, nil
	}
	if err != nil {
		return Handoff{}, fmt.Errorf("redis get failed: %w", err)
	}

	var h Handoff
	if err2 := json.Unmarshal(data, &h); err2 != nil {
		return Handoff{}, fmt.Errorf("unmarshal handoff failed: %w", err2)
	}
	return h.normalize(), nil
}

func (r RedisStore) Save(ctx context.Context, scope string, h Handoff) error {
	data, err := json.Marshal(h.normalize())
	if err != nil {
		return fmt.Errorf("marshal handoff failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	if err := r.client.Set(ctx, handoffKey(scope), data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r RedisStore) Clear(ctx context.Context, scope string) error {
	if err := r.client.Del(ctx, handoffKey(scope)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func handoffKey(scope string) string {
	return fmt.Sprintf("checkout:%s", scope)
}
