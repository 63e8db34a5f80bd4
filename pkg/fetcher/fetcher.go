// Package fetcher は、許可リストで制限された上流ページの取得を担当します。
// リダイレクトは自動追従せず、ホップごとに遷移先ホストを再検証します。
package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shouni/usj-wait-api/pkg/apperr"
)

const (
	// DefaultHTTPTimeout は、デフォルトのHTTPタイムアウトです。
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultMaxRedirects は、追従するリダイレクト回数の上限です。
	DefaultMaxRedirects = 5

	// MaxBodySize はレスポンスボディの最大読み込みサイズです。
	MaxBodySize = int64(10 * 1024 * 1024) // 10MB

	// DefaultUserAgent は、サイトからのブロックを避けるためのUser-Agentです。
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125 Safari/537.36"

	// previewRunes は、上流エラー時にボディから切り出すプレビューの文字数です。
	previewRunes = 200
)

// redirectStatuses は、手動で追従するリダイレクトのステータスコード集合です。
var redirectStatuses = map[int]bool{
	http.StatusMovedPermanently:  true, // 301
	http.StatusFound:             true, // 302
	http.StatusSeeOther:          true, // 303
	http.StatusTemporaryRedirect: true, // 307
	http.StatusPermanentRedirect: true, // 308
}

// Doer は、標準の *http.Client.Do() と互換性のあるHTTPクライアントのインターフェースです。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result は取得に成功したHTMLドキュメントと、リダイレクト追従後の最終URLです。
type Result struct {
	FinalURL string
	HTML     string
}

// Fetcher は、許可リスト内のターゲットをリダイレクト追従付きで取得します。
type Fetcher struct {
	client       Doer
	allowHosts   []string
	maxRedirects int
	userAgent    string
}

// Option はFetcherの設定を行うための関数型です。
type Option func(*Fetcher)

// WithHTTPClient はカスタムのDoerを設定します（テスト用途）。
func WithHTTPClient(doer Doer) Option {
	return func(f *Fetcher) { f.client = doer }
}

// WithMaxRedirects はリダイレクト上限を設定します。
func WithMaxRedirects(max int) Option {
	return func(f *Fetcher) {
		if max > 0 {
			f.maxRedirects = max
		}
	}
}

// WithUserAgent はUser-Agentを上書きします。
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// New は新しいFetcherを生成します。
// 内部のHTTPクライアントはリダイレクトを自動追従しません。3xxレスポンスは
// そのまま返され、追従の判断はFetch側のループが行います。
func New(timeout time.Duration, allowHosts []string, options ...Option) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	f := &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		allowHosts:   allowHosts,
		maxRedirects: DefaultMaxRedirects,
		userAgent:    DefaultUserAgent,
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

func (f *Fetcher) allowed(host string) bool {
	for _, h := range f.allowHosts {
		if h == host {
			return true
		}
	}
	return false
}

// addBrowserHeaders は、ブラウザ相当のリクエストヘッダを設定します。
// Referer は現在のホップのオリジンを指します。
func (f *Fetcher) addBrowserHeaders(req *http.Request, current *url.URL) {
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Language", "ja,en;q=0.9")
	req.Header.Set("Referer", current.Scheme+"://"+current.Host+"/")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
}

// Fetch は、ターゲットURLをGETし、リダイレクトを上限まで手動追従して
// 最終レスポンスのHTMLを返します。
//
// ターゲットのホストはリクエスト発行前に再検証されます（多層防御）。
// ホップごとに Location を現在URL基準で解決し、遷移先ホストも検証します。
// 最終ステータスが200以外の場合はボディのプレビュー付きで上流エラーを返します。
func (f *Fetcher) Fetch(ctx context.Context, target string) (*Result, *apperr.Error) {
	current, err := url.Parse(target)
	if err != nil {
		return nil, apperr.FetchFailure(err, target)
	}
	if !f.allowed(current.Hostname()) {
		return nil, apperr.ForbiddenTarget(target)
	}

	redirects := 0
	var finalResp *http.Response

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current.String(), nil)
		if err != nil {
			return nil, apperr.FetchFailure(err, target)
		}
		f.addBrowserHeaders(req, current)

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, apperr.FetchFailure(err, target)
		}

		if redirectStatuses[resp.StatusCode] {
			location := resp.Header.Get("Location")
			if location != "" {
				io.Copy(io.Discard, resp.Body) //nolint:errcheck // コネクション再利用のための読み捨て
				resp.Body.Close()

				redirects++
				if redirects > f.maxRedirects {
					return nil, apperr.TooManyRedirects(current.String())
				}
				candidate, err := current.Parse(location)
				if err != nil {
					return nil, apperr.FetchFailure(err, target)
				}
				if !f.allowed(candidate.Hostname()) {
					return nil, apperr.ForbiddenRedirect(current.String(), candidate.String())
				}
				current = candidate
				continue
			}
			// Location の無い3xxは最終レスポンスとして扱う
		}

		finalResp = resp
		break
	}
	defer finalResp.Body.Close()

	// ステータスに関わらずボディを読む（エラープレビューに必要）
	body, err := io.ReadAll(io.LimitReader(finalResp.Body, MaxBodySize))
	if err != nil {
		return nil, apperr.FetchFailure(err, target)
	}

	if finalResp.StatusCode != http.StatusOK {
		return nil, apperr.Upstream(
			finalResp.StatusCode,
			http.StatusText(finalResp.StatusCode),
			preview(string(body)),
			current.String(),
		)
	}

	return &Result{FinalURL: current.String(), HTML: string(body)}, nil
}

// preview はボディ冒頭を200文字に切り詰めます。
func preview(body string) string {
	runes := []rune(body)
	if len(runes) > previewRunes {
		runes = runes[:previewRunes]
	}
	return string(runes)
}
