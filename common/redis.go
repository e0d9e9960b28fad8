package common

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/go-redis/redis/v8"

	"github.com/gptbots-qa/agent-tester/common/config"
	"github.com/gptbots-qa/agent-tester/common/logger"
)

var RDB redis.Cmdable

var redisEnabled atomic.Bool

func IsRedisEnabled() bool {
	return redisEnabled.Load()
}

// InitRedisClient connects to REDIS_CONN_STRING. Redis stays disabled when it is unset.
func InitRedisClient() error {
	if config.RedisConnString == "" {
		redisEnabled.Store(false)
		logger.Logger.Info("REDIS_CONN_STRING not set, run state stays process-local")
		return nil
	}

	if config.RedisMasterName == "" {
		opt, err := redis.ParseURL(config.RedisConnString)
		if err != nil {
			return errors.Wrap(err, "parse Redis connection string")
		}
		RDB = redis.NewClient(opt)
	} else {
		logger.Logger.Info("Redis sentinel mode enabled")
		RDB = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:      strings.Split(config.RedisConnString, ","),
			Password:   config.RedisPassword,
			MasterName: config.RedisMasterName,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := RDB.Ping(ctx).Result(); err != nil {
		return errors.Wrap(err, "Redis ping")
	}

	redisEnabled.Store(true)
	logger.Logger.Info("Redis is enabled")
	return nil
}
