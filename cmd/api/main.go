// Package main はWebサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/authgate/internal/account"
	"github.com/yourusername/authgate/internal/auth"
	"github.com/yourusername/authgate/internal/config"
	"github.com/yourusername/authgate/internal/logger"
	"github.com/yourusername/authgate/internal/password"
	"github.com/yourusername/authgate/internal/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.GinMode, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	for _, key := range cfg.Fallbacks() {
		zlog.Warn("using development fallback", zap.String("env", key))
	}

	users, closeStore, err := setupUserStore(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	defer closeStore()

	// セッションストアの設定（Cookie の署名・暗号化鍵は SESSION_SECRET から導出）
	sessionStore, err := auth.NewCookieStore(cfg.SessionSecret, cfg.CookieSecure)
	if err != nil {
		return err
	}

	hasher := password.NewHasher(cfg.BcryptCost, cfg.HashConcurrency)
	router, err := web.NewRouter(web.Options{
		Accounts:     account.NewService(users, hasher, zlog.Named("account")),
		Sessions:     auth.NewManager(users, zlog.Named("auth")),
		SessionStore: sessionStore,
		Logger:       zlog.Named("http"),
		HSTS:         cfg.CookieSecure,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.String("mode", cfg.GinMode),
			zap.String("store", cfg.UserStore),
			zap.Int("bcrypt_cost", hasher.Cost()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
