package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "usjwait:"

// Redis は go-redis を用いたStore実装です。
// TTLはRedis側のPX失効に委ねるため、期限切れエントリが返ることはありません。
type Redis struct {
	client *redis.Client
}

// NewRedis は新しいRedisストアを生成します。接続確認は呼び出し側の責務です。
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Get はStoreインターフェースを実装します。
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// Set はStoreインターフェースを実装します。ttl<=0 の場合は何もしません。
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, redisKeyPrefix+key, value, ttl).Err()
}
