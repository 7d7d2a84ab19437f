// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"homely/config"

	"github.com/go-redis/redis/v8"
)

// SnapshotCacheClient serves the reconciliation read path so poll traffic
// does not hit Mongo on every tick.
var SnapshotCacheClient *redis.Client

// InitRedis initializes the Redis snapshot cache client.
func InitRedis() {
	SnapshotCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisCacheDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := SnapshotCacheClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Snapshot Cache): %v", err)
	}
}

// GetSnapshotCacheClient returns the snapshot cache client.
func GetSnapshotCacheClient() *redis.Client {
	if SnapshotCacheClient == nil {
		InitRedis()
	}
	return SnapshotCacheClient
}
