package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"debridops/internal/domain"
)

const redisKeyPrefix = "debridops:files:"

// RedisBackend stores file metadata in Redis with JSON serialization.
type RedisBackend struct {
	client *redis.Client
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (r *RedisBackend) Get(ctx context.Context, id domain.FileID) (domain.RemoteFile, bool, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+string(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return domain.RemoteFile{}, false, nil
		}
		return domain.RemoteFile{}, false, err
	}
	var file domain.RemoteFile
	if err := json.Unmarshal(data, &file); err != nil {
		return domain.RemoteFile{}, false, err
	}
	return file, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, file domain.RemoteFile, ttl time.Duration) error {
	data, err := json.Marshal(file)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKeyPrefix+string(file.ID), data, ttl).Err()
}

func (r *RedisBackend) Delete(ctx context.Context, id domain.FileID) error {
	return r.client.Del(ctx, redisKeyPrefix+string(id)).Err()
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
