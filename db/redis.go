package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"fairbet/config"
	"fairbet/models"
)

const recentBetsKey = "recent_bets"
const recentBetsKept = 50

// RedisService backs rate limiting and the recent-bets feed. It is
// optional: every method on a nil receiver degrades to a no-op so the
// pipeline keeps settling bets when Redis is down.
type RedisService struct {
	client *redis.Client
	logger *log.Logger
}

// NewRedis connects and pings the Redis instance.
func NewRedis(ctx context.Context, addr, password string, database int, logger *log.Logger) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           database,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis connected", "addr", addr)
	return &RedisService{client: client, logger: logger}, nil
}

// Close closes the Redis connection.
func (r *RedisService) Close() error {
	if r == nil {
		return nil
	}
	return r.client.Close()
}

// HealthCheck pings Redis.
func (r *RedisService) HealthCheck(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.client.Ping(ctx).Err()
}

// CheckRateLimit counts one bet attempt against the per-user window and
// reports whether the user is still under the limit. Errors fail open.
func (r *RedisService) CheckRateLimit(ctx context.Context, userID int64) bool {
	if r == nil {
		return true
	}

	key := fmt.Sprintf("rate_limit:bets:%d", userID)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		r.logger.Warn("rate limit check failed", "err", err)
		return true
	}
	if count == 1 {
		r.client.Expire(ctx, key, config.BetRateLimitWindow)
	}

	return count <= config.BetRateLimit
}

// PushRecentBet prepends a settled bet onto the shared recent-bets list,
// trimming it to the kept window.
func (r *RedisService) PushRecentBet(ctx context.Context, bet *models.BetExpanded) {
	if r == nil {
		return
	}

	data, err := json.Marshal(bet)
	if err != nil {
		r.logger.Warn("failed to marshal recent bet", "err", err)
		return
	}

	pipe := r.client.Pipeline()
	pipe.LPush(ctx, recentBetsKey, data)
	pipe.LTrim(ctx, recentBetsKey, 0, recentBetsKept-1)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("failed to push recent bet", "err", err)
	}
}

// RecentBets returns the kept window of settled bets, newest first.
func (r *RedisService) RecentBets(ctx context.Context) ([]*models.BetExpanded, error) {
	if r == nil {
		return nil, nil
	}

	raw, err := r.client.LRange(ctx, recentBetsKey, 0, recentBetsKept-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent bets: %w", err)
	}

	bets := make([]*models.BetExpanded, 0, len(raw))
	for _, item := range raw {
		var bet models.BetExpanded
		if err := json.Unmarshal([]byte(item), &bet); err != nil {
			r.logger.Warn("skipping malformed recent bet", "err", err)
			continue
		}
		bets = append(bets, &bet)
	}

	return bets, nil
}
