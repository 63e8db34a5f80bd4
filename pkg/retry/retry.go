// Package retry は、指数バックオフ付きのリトライ実行を提供します。
// 起動時のキャッシュストア接続確認など、一時的な失敗が予想される操作に使います。
// 上流ページの照会には使いません。
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxRetries は最大リトライ回数のデフォルトです。
	DefaultMaxRetries = 3

	// バックオフのカスタム設定
	InitialBackoffInterval = 500 * time.Millisecond
	MaxBackoffInterval     = 5 * time.Second
)

// Operation はリトライ可能な処理を表す関数です。成功時は nil を返します。
type Operation func() error

// Config はリトライ動作を設定するための構造体です。
type Config struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultConfig は推奨されるデフォルト設定を返します。
func DefaultConfig() Config {
	return Config{
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: InitialBackoffInterval,
		MaxInterval:     MaxBackoffInterval,
	}
}

// Do は指数バックオフを使用して操作をリトライします。
// コンテキストのキャンセル/タイムアウトで即座に中断します。
func Do(ctx context.Context, cfg Config, operationName string, op Operation) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval

	// 最大リトライ回数とコンテキストを backoff に適用
	bo := backoff.WithMaxRetries(b, cfg.MaxRetries)
	bo = backoff.WithContext(bo, ctx)

	var lastErr error
	err := backoff.Retry(func() error {
		if err := op(); err != nil {
			lastErr = err
			return err
		}
		return nil
	}, bo)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("%sに失敗しました: コンテキストタイムアウト/キャンセル: %w", operationName, err)
		}
		return fmt.Errorf("%sに失敗しました: 最大リトライ回数 (%d回) に到達。最終エラー: %w", operationName, cfg.MaxRetries, lastErr)
	}
	return nil
}
