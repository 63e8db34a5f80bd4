// Package config は、プロセス全体の静的設定を一度だけロードします。
// 許可ホスト・スラッグの上書きマッピング・カタログは起動後に変更されない
// イミュータブルな設定として扱います。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultTTLSeconds は cache パラメータ未指定・不正時のTTLです。
	DefaultTTLSeconds = 60
	// MaxTTLSeconds は cache パラメータの上限（1日）です。
	MaxTTLSeconds = 86400
)

// Config はアプリケーション全体の設定です。
type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Upstream UpstreamConfig    `mapstructure:"upstream"`
	Cache    CacheConfig       `mapstructure:"cache"`
	Slugs    map[string]string `mapstructure:"slugs"`
	Catalog  []CatalogItem     `mapstructure:"catalog"`
}

// ServerConfig はHTTPサーバーの設定です。
type ServerConfig struct {
	Addr     string `mapstructure:"addr"`
	LogLevel string `mapstructure:"log_level"`
}

// UpstreamConfig は上流サイトへのフェッチに関する設定です。
type UpstreamConfig struct {
	AllowHosts   []string `mapstructure:"allow_hosts"`
	PrimaryHost  string   `mapstructure:"primary_host"`
	MaxRedirects int      `mapstructure:"max_redirects"`
	UserAgent    string   `mapstructure:"user_agent"`
	TimeoutSec   int      `mapstructure:"timeout_sec"`
}

// Timeout はHTTPクライアントのタイムアウトを返します。
func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSec) * time.Second
}

// CacheConfig はレスポンスキャッシュの設定です。
type CacheConfig struct {
	Backend       string      `mapstructure:"backend"` // "memory" または "redis"
	DefaultTTLSec int         `mapstructure:"default_ttl_sec"`
	MaxTTLSec     int         `mapstructure:"max_ttl_sec"`
	Redis         RedisConfig `mapstructure:"redis"`
}

// DefaultTTL はデフォルトTTLを返します。
func (c CacheConfig) DefaultTTL() time.Duration {
	return time.Duration(c.DefaultTTLSec) * time.Second
}

// MaxTTL はTTLの上限を返します。
func (c CacheConfig) MaxTTL() time.Duration {
	return time.Duration(c.MaxTTLSec) * time.Second
}

// RedisConfig はRedisバックエンドの接続設定です。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CatalogItem は既知アトラクションのカタログ項目です。
// JSONのフィールド名は配信フォーマットに合わせています。
type CatalogItem struct {
	ID          string `mapstructure:"id" json:"id"`
	DisplayName string `mapstructure:"display_name" json:"displayName"`
	ShortName   string `mapstructure:"short_name" json:"shortName"`
	CodeName    string `mapstructure:"code_name" json:"codeName"`
	APITitle    string `mapstructure:"api_title" json:"apiTitle"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	ImageURL    string `mapstructure:"image_url" json:"image_url"`
	Area        string `mapstructure:"area" json:"area"`
	Active      bool   `mapstructure:"active" json:"active"`
}

// setDefaults は、ゼロ設定でも動作するデフォルト値を適用します。
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.log_level", "info")

	v.SetDefault("upstream.allow_hosts", []string{"usjreal.asumirai.info", "en.usjreal.asumirai.info"})
	v.SetDefault("upstream.primary_host", "usjreal.asumirai.info")
	v.SetDefault("upstream.max_redirects", 5)
	v.SetDefault("upstream.timeout_sec", 30)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.default_ttl_sec", DefaultTTLSeconds)
	v.SetDefault("cache.max_ttl_sec", MaxTTLSeconds)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.db", 0)
}

// Load は設定ファイルと環境変数から設定を読み込みます。
// path が空の場合はカレントディレクトリの config.yaml を探し、
// 見つからなければデフォルト値のみで起動します。
// 環境変数は USJWAIT_SERVER_ADDR のようにプレフィックス付きで上書きできます。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("USJWAIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました (%s): %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// 設定ファイル無しはエラーではない（デフォルトで動作する）
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定のデコードに失敗しました: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Upstream.AllowHosts) == 0 {
		return fmt.Errorf("upstream.allow_hosts が空です")
	}
	if c.Upstream.PrimaryHost == "" {
		c.Upstream.PrimaryHost = c.Upstream.AllowHosts[0]
	}
	primaryAllowed := false
	for _, h := range c.Upstream.AllowHosts {
		if h == c.Upstream.PrimaryHost {
			primaryAllowed = true
			break
		}
	}
	if !primaryAllowed {
		return fmt.Errorf("upstream.primary_host (%s) が許可リストに含まれていません", c.Upstream.PrimaryHost)
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend は memory か redis を指定してください: %s", c.Cache.Backend)
	}
	if c.Cache.DefaultTTLSec < 0 || c.Cache.MaxTTLSec <= 0 {
		return fmt.Errorf("キャッシュTTLの設定が不正です (default=%d, max=%d)", c.Cache.DefaultTTLSec, c.Cache.MaxTTLSec)
	}
	return nil
}
