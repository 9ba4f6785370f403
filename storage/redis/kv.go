package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// KV is a Redis-backed key-value store with TTL, used as the shared
// discovery cache for multi-instance deployments. All keys are namespaced
// under a prefix so one Redis can serve several loginkit deployments.
type KV struct {
	rdb    *redis.Client
	prefix string
}

func NewKV(rdb *redis.Client) *KV {
	return &KV{rdb: rdb, prefix: "loginkit:"}
}

// WithPrefix overrides the default "loginkit:" key namespace.
func (k *KV) WithPrefix(prefix string) *KV { k.prefix = prefix; return k }

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := k.rdb.Get(ctx, k.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return k.rdb.Set(ctx, k.prefix+key, value, ttl).Err()
}

func (k *KV) Del(ctx context.Context, key string) error {
	return k.rdb.Del(ctx, k.prefix+key).Err()
}
