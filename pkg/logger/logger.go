// Package logger は、プロセス全体で共有するzapロガーを提供します。
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger *zap.Logger
	mu           sync.RWMutex
)

func init() {
	// Init 前でも安全に使えるように no-op ロガーを設定しておく
	globalLogger = zap.NewNop()
}

// Init は、指定されたレベル文字列でグローバルロガーを構成します。
// 不明なレベルは info にフォールバックします。
func Init(level string) error {
	cfg := zap.NewProductionConfig()

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	built, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	globalLogger = built
	return nil
}

// Logger は構成済みのグローバルロガーを返します。
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return globalLogger
}

// WithModule は、モジュール名を付与した子ロガーを返します。
func WithModule(module string) *zap.Logger {
	return Logger().With(zap.String("module", module))
}

// Sync はバッファされたログをフラッシュします。
func Sync() error {
	return Logger().Sync()
}
