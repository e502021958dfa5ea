package cache

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"prothompay.io/infrastructure/logger"
)

type RedisClient struct {
	Client *redis.Client
}

var (
	instance *RedisClient
	once     = sync.Once{}
)

func GetInstance() (*RedisClient, error) {
	once.Do(func() {
		connectRedis()
	})
	return instance, nil
}

func ConnectToCache() {
	GetInstance()
}

func connectRedis() {
	opt := &redis.Options{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
		PoolSize: 10,
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warning("could not reach redis", logger.LoggerOptions{Key: "error", Data: err})
	} else {
		logger.Info("connected to redis successfully")
	}
	instance = &RedisClient{Client: client}
}
