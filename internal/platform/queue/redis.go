package queue

import (
	"context"
	"fmt"
	"oj_workbench/internal/platform/config"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var RDB *redis.Client

// ConnectRedis is shared by the judge queue, the judge worker and the Redis
// draft backend.
func ConnectRedis(ctx context.Context, logger *zap.Logger) error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(pingCtx).Result(); err != nil {
		rdb.Close()
		return fmt.Errorf("could not connect to Redis at %s: %w", config.AppConfig.RedisAddr, err)
	}

	RDB = rdb
	logger.Info("connected to Redis", zap.String("addr", config.AppConfig.RedisAddr))
	return nil
}

func CloseRedis(logger *zap.Logger) {
	if RDB != nil {
		RDB.Close()
		logger.Info("Redis connection closed")
	}
}
