// Package cache は、レスポンスキャッシュのキーバリューストアを提供します。
package cache

import (
	"context"
	"time"
)

// Store は、TTL付きキーバリューストアのインターフェースです。
// スレッドセーフであることが前提で、期限切れのエントリは決して返されません。
type Store interface {
	// Get はキーに対応する値を返します。存在しないか期限切れの場合は ok=false。
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set は値をTTL付きで保存します。ttl が 0 以下の場合は何も保存しません。
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
