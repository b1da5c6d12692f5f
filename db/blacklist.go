package db

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// TokenBlacklist holds access tokens revoked by logout until they would have
// expired anyway.
type TokenBlacklist interface {
	AddToBlackList(ctx context.Context, token string, ttl time.Duration) error
	IsTokenInBlacklist(ctx context.Context, token string) (bool, error)
}

type RedisBlacklist struct {
	Client *redis.Client
}

func InitRedis(addr, password string) (*RedisBlacklist, error) {
	rb := &RedisBlacklist{
		Client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
	}
	if err := rb.Client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to redis")
	}
	logrus.WithField("addr", addr).Info("connected to redis")
	return rb, nil
}

func blacklistKey(token string) string {
	return "blacklist:" + strings.TrimSpace(token)
}

func (r *RedisBlacklist) AddToBlackList(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return errors.Wrap(r.Client.Set(ctx, blacklistKey(token), 1, ttl).Err(), "blacklist token")
}

func (r *RedisBlacklist) IsTokenInBlacklist(ctx context.Context, token string) (bool, error) {
	n, err := r.Client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, errors.Wrap(err, "check blacklist")
	}
	return n > 0, nil
}
