package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "firmgate:webhook:delivery:"

// Redis shares claims across replicas.
type Redis struct {
	client redis.Cmdable
}

func NewRedis(client redis.Cmdable) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Claim(ctx context.Context, deliveryID string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, redisKeyPrefix+deliveryID, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim webhook delivery: %w", err)
	}
	return ok, nil
}

func (r *Redis) Release(ctx context.Context, deliveryID string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+deliveryID).Err(); err != nil {
		return fmt.Errorf("release webhook delivery: %w", err)
	}
	return nil
}
