package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shouni/usj-wait-api/internal/cache"
	"github.com/shouni/usj-wait-api/internal/config"
	"github.com/shouni/usj-wait-api/internal/handlers"
	"github.com/shouni/usj-wait-api/internal/service"
	"github.com/shouni/usj-wait-api/pkg/fetcher"
	"github.com/shouni/usj-wait-api/pkg/logger"
	"github.com/shouni/usj-wait-api/pkg/resolver"
	"github.com/shouni/usj-wait-api/pkg/retry"
)

const (
	shutdownTimeout = 15 * time.Second
	// メモリキャッシュの掃除間隔。TTLの既定値より十分長ければよい
	memorySweepInterval = 5 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "待ち時間APIサーバーを起動します",
	Long:  `設定された許可ホストのアトラクションページを照会するHTTP APIサーバーを起動します。SIGINT/SIGTERMで安全に停止します。`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := appConfig
	log := logger.WithModule("serve")

	store, closeStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	rsv, err := resolver.New(cfg.Upstream.AllowHosts, cfg.Upstream.PrimaryHost, cfg.Slugs)
	if err != nil {
		return fmt.Errorf("リゾルバの初期化に失敗しました: %w", err)
	}

	var fetchOpts []fetcher.Option
	if cfg.Upstream.MaxRedirects > 0 {
		fetchOpts = append(fetchOpts, fetcher.WithMaxRedirects(cfg.Upstream.MaxRedirects))
	}
	if cfg.Upstream.UserAgent != "" {
		fetchOpts = append(fetchOpts, fetcher.WithUserAgent(cfg.Upstream.UserAgent))
	}
	ftc := fetcher.New(cfg.Upstream.Timeout(), cfg.Upstream.AllowHosts, fetchOpts...)

	svc := service.New(rsv, ftc, store, cfg.Cache.DefaultTTL(), cfg.Cache.MaxTTL(), logger.WithModule("service"))
	router := handlers.NewRouter(handlers.New(svc, cfg.Catalog), logger.WithModule("http"))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("サーバーを起動します",
			zap.String("addr", cfg.Server.Addr),
			zap.Strings("allow_hosts", cfg.Upstream.AllowHosts),
			zap.String("cache_backend", cfg.Cache.Backend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("サーバーの起動に失敗しました: %w", err)
	case <-ctx.Done():
	}

	log.Info("シャットダウンします")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("シャットダウンに失敗しました: %w", err)
	}
	return nil
}

// buildStore は、設定に応じたキャッシュストアと後始末関数を返します。
// redis の場合は起動時に接続確認をリトライ付きで行います。
func buildStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (cache.Store, func(), error) {
	switch cfg.Cache.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		err := retry.Do(ctx, retry.DefaultConfig(), "Redis接続確認", func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			return client.Ping(pingCtx).Err()
		})
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		log.Info("redisに接続しました", zap.String("addr", cfg.Cache.Redis.Addr))
		return cache.NewRedis(client), func() { _ = client.Close() }, nil

	default:
		store := cache.NewMemory(memorySweepInterval)
		return store, store.Close, nil
	}
}
