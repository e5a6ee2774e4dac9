package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/sagely-dev/sagely/internal/core/error"
)

const redisOpTimeout = 3 * time.Second

// RedisStore keeps entries under sagely:{namespace}:{key} with no expiry.
type RedisStore struct {
	rdb       redis.Cmdable
	namespace string
}

func NewRedisStore(rdb redis.Cmdable, namespace string) *RedisStore {
	return &RedisStore{rdb: rdb, namespace: namespace}
}

func (s *RedisStore) redisKey(key string) string {
	return fmt.Sprintf("sagely:%s:%s", s.namespace, key)
}

func (s *RedisStore) pattern() string {
	return fmt.Sprintf("sagely:%s:*", s.namespace)
}

func (s *RedisStore) Read(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	b, err := s.rdb.Get(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, errx.WrapRedis(err)
	}
	return b, nil
}

func (s *RedisStore) Write(key string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.rdb.Set(ctx, s.redisKey(key), string(data), 0).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

func (s *RedisStore) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.rdb.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

func (s *RedisStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	keys, err := s.rdb.Keys(ctx, s.pattern()).Result()
	if err != nil {
		return errx.WrapRedis(err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

func (s *RedisStore) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	keys, err := s.rdb.Keys(ctx, s.pattern()).Result()
	if err != nil {
		return 0
	}
	return len(keys)
}
