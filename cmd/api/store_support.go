package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yourusername/authgate/internal/config"
	"github.com/yourusername/authgate/internal/storage"
	"github.com/yourusername/authgate/internal/user"
)

// setupUserStore は USER_STORE に応じたユーザーストアと、その後始末を返します。
func setupUserStore(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (user.Store, func(), error) {
	switch cfg.UserStore {
	case config.StorePostgres:
		if err := storage.Migrate(ctx, cfg.DatabaseURL); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		pool, err := storage.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		zlog.Info("connected to postgres")
		return storage.NewPostgresUserStore(pool), pool.Close, nil

	case config.StoreRedis:
		rdb, err := storage.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		zlog.Info("connected to redis")
		return storage.NewRedisUserStore(rdb), func() { _ = rdb.Close() }, nil

	case config.StoreMemory:
		// 再起動でユーザーは消える
		zlog.Warn("using in-memory user store")
		return user.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown user store %q", cfg.UserStore)
}
