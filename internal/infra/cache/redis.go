package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pulsemsp/pulse/internal/domain/entities"
	"github.com/pulsemsp/pulse/internal/domain/scoring"
)

// Redis is the shared score cache for multi-instance deployments. Bundles
// are stored as JSON under scores:<tenant>:<client>.
type Redis struct {
	client *redis.Client
}

func NewRedis(addr, password string, db int) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Get(ctx context.Context, tenant string, id entities.ClientID) (*scoring.Bundle, bool, error) {
	raw, err := r.client.Get(ctx, cacheKey(tenant, id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var b scoring.Bundle
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		// stale or foreign payload; treat as a miss
		return nil, false, nil
	}
	return &b, true, nil
}

func (r *Redis) Set(ctx context.Context, tenant string, id entities.ClientID, b *scoring.Bundle, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, cacheKey(tenant, id), raw, ttl).Err()
}

var _ scoring.Cache = (*Redis)(nil)
