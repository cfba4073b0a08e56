package app

import (
	"kluvs-auth/internal/config"
	"kluvs-auth/internal/logger"
	"kluvs-auth/internal/redis"
)

type Infra struct {
	Redis *redis.Client
}

func setupInfra(cfg config.Config) (*Infra, error) {
	redisClient, err := redis.New(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, err
	}

	logger.Info("redis ready", nil)

	return &Infra{
		Redis: redisClient,
	}, nil
}
