package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis stores payloads as plain string values without expiry.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	if client == nil {
		panic("storage.NewRedis: client is nil")
	}
	return &Redis{client: client}
}

func (r *Redis) Load(ctx context.Context, key string, dst any) (bool, error) {
	payload, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("load %q: %w", key, err)
	}
	return decodeInto(key, payload, dst), nil
}

func (r *Redis) Save(ctx context.Context, key string, value any) error {
	payload, err := encode(value)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}
