package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RetryPolicy - сколько раз и с какой паузой пытаться подключиться.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// ConnectPostgres создает пул соединений и проверяет его пингом, повторяя попытки.
func ConnectPostgres(ctx context.Context, dsn string, maxConns int, policy RetryPolicy, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = int32(maxConns)
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxRetries; attempt++ {
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err = pool.Ping(pingCtx)
			cancel()
			if err == nil {
				logger.Info("Successfully connected and pinged PostgreSQL", zap.Int("attempt", attempt))
				return pool, nil
			}
			pool.Close()
		}
		lastErr = err
		logger.Warn("Postgres connection failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", policy.MaxRetries),
			zap.Error(err),
		)
		if err := sleepCtx(ctx, policy.Delay); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to connect to postgres after %d attempts: %w", policy.MaxRetries, lastErr)
}

// ConnectRedis создает клиента Redis и ждет, пока он ответит на PING.
func ConnectRedis(ctx context.Context, opts *redis.Options, policy RetryPolicy, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(opts)

	var lastErr error
	for attempt := 1; attempt <= policy.MaxRetries; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		lastErr = client.Ping(pingCtx).Err()
		cancel()
		if lastErr == nil {
			logger.Info("Successfully connected and pinged Redis", zap.Int("attempt", attempt), zap.String("address", opts.Addr))
			return client, nil
		}
		logger.Warn("Redis ping failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", policy.MaxRetries),
			zap.Error(lastErr),
		)
		if err := sleepCtx(ctx, policy.Delay); err != nil {
			client.Close()
			return nil, err
		}
	}
	client.Close()
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", policy.MaxRetries, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
