// Package client は、リトライ付きHTTPクライアントの薄いラッパーを提供します。
// カタログ探索コマンドのように、リトライしてよいフェッチにのみ使います。
package client

import (
	"context"
	"net/http"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"
)

const (
	// DefaultHTTPTimeout は、デフォルトのHTTPタイムアウトです。
	DefaultHTTPTimeout = 10 * time.Second
)

// Doer は、標準の *http.Client.Do() と互換性のあるHTTPクライアントのインターフェースです。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client は httpkit.Client をラップし、リトライロジックをカプセル化します。
type Client struct {
	*httpkit.Client
}

// ClientOption はClientの設定を行うための関数型です。
type ClientOption func(*Client)

// WithHTTPClient はカスタムのDoerを設定します。
func WithHTTPClient(doer Doer) ClientOption {
	return func(c *Client) {
		httpkit.WithHTTPClient(doer)(c.Client)
	}
}

// WithMaxRetries は最大リトライ回数を設定します。
func WithMaxRetries(max uint64) ClientOption {
	return func(c *Client) {
		httpkit.WithMaxRetries(max)(c.Client)
	}
}

// New は新しいClientを初期化します。
func New(timeout time.Duration, options ...ClientOption) *Client {
	c := &Client{
		Client: httpkit.New(timeout),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// FetchBytes は URL からコンテンツをフェッチし、生のバイト配列として返します。
// リトライロジックは httpkit.Client が処理します。
func (c *Client) FetchBytes(url string, ctx context.Context) ([]byte, error) {
	return c.Client.FetchBytes(ctx, url)
}
