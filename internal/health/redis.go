package health

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// NewRedisChecker проверяет доступность Redis. Кэш каталога необязателен,
// поэтому недоступный Redis даёт degraded, а не unhealthy.
func NewRedisChecker(rdb redis.UniversalClient) Checker {
	return redisChecker{inner: NewFuncChecker("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})}
}

type redisChecker struct {
	inner *FuncChecker
}

func (c redisChecker) Check(ctx context.Context) Check {
	check := c.inner.Check(ctx)
	if check.Status == StatusUnhealthy {
		check.Status = StatusDegraded
	}
	return check
}
