package errx

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// WrapRedis classifies a cache store failure: a missing key is KindNotFound,
// an expired deadline is KindTimeout, anything else is KindStorage.
func WrapRedis(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return New(err, KindNotFound, RedisNotFoundMessage)
	case errors.Is(err, context.DeadlineExceeded):
		return New(err, KindTimeout, RedisTimeoutMessage)
	}
	return New(err, KindStorage, RedisErrorMessage)
}
