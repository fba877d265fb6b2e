package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "academy:session:"

// hashCommands is the subset of the Redis client the session repository needs.
type hashCommands interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisSessionRepository keeps each console session as one Redis hash.
type RedisSessionRepository struct {
	client    hashCommands
	retention time.Duration
}

// NewRedisSessionRepository constructs a Redis backed session repository.
func NewRedisSessionRepository(client hashCommands, retention time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{client: client, retention: retention}
}

// Load returns every stored field for the session. Unknown sessions yield an empty map.
func (r *RedisSessionRepository) Load(ctx context.Context, sid string) (map[string]string, error) {
	values, err := r.client.HGetAll(ctx, sessionKeyPrefix+sid).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall session: %w", err)
	}
	return values, nil
}

// Store replaces the given fields in a single HSET and refreshes retention.
func (r *RedisSessionRepository) Store(ctx context.Context, sid string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	key := sessionKeyPrefix + sid
	args := make([]interface{}, 0, len(fields)*2)
	for field, value := range fields {
		args = append(args, field, value)
	}
	if err := r.client.HSet(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("redis hset session: %w", err)
	}
	if r.retention > 0 {
		if err := r.client.Expire(ctx, key, r.retention).Err(); err != nil {
			return fmt.Errorf("redis expire session: %w", err)
		}
	}
	return nil
}

// Remove deletes the given fields from the session hash.
func (r *RedisSessionRepository) Remove(ctx context.Context, sid string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	if err := r.client.HDel(ctx, sessionKeyPrefix+sid, fields...).Err(); err != nil {
		return fmt.Errorf("redis hdel session: %w", err)
	}
	return nil
}
