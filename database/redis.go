package database

import (
	"cardhub/config"
	"context"
	"log"

	"github.com/go-redis/redis/v8"
)

var RedisClient *redis.Client

// InitRedis connects when REDIS_ADDR is set. A failed ping leaves the
// client nil so callers fall back to process-local state.
func InitRedis() *redis.Client {
	addr := config.Config("REDIS_ADDR", "")
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.Config("REDIS_PASS", ""),
		DB:       config.ConfigInt("REDIS_DB", 0),
	})

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Printf("Redis connection failed: %v", err)
		client.Close()
		return nil
	}

	log.Printf("Redis connection successful")
	RedisClient = client
	return client
}
