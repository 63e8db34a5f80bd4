package apperr

import (
	"fmt"
	"net/http"
	"strings"
)

// ----------------------------------------------------------------------
// 構造化エラーの定義
// ----------------------------------------------------------------------

// エラーコード。レスポンスには現れず、ログとテストでの分類に使用します。
const (
	CodeInvalidURL       = "invalid_url"
	CodeInvalidSlug      = "invalid_slug"
	CodeMissingParameter = "missing_parameter"
	CodeForbiddenHost    = "forbidden_host"
	CodeTooManyRedirects = "too_many_redirects"
	CodeUpstream         = "upstream_error"
	CodeFetchFailure     = "fetch_failure"
)

// Error は、APIレスポンスとしてそのまま描画できる構造化エラーです。
// Message が JSON ボディの "error" フィールドになり、Context の各キーが
// 追加フィールド（source, from, to など）としてマージされます。
type Error struct {
	Code     string
	Message  string
	Status   int
	Context  map[string]any
	Internal error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap は errors.Is / errors.As のために内部エラーを公開します。
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Body は JSON レスポンスボディとして返すマップを構築します。
func (e *Error) Body() map[string]any {
	body := map[string]any{"error": e.Message}
	for k, v := range e.Context {
		body[k] = v
	}
	return body
}

// ----------------------------------------------------------------------
// コンストラクタ（エラー分類の全種別）
// ----------------------------------------------------------------------

// InvalidURL は、絶対URLとしてパースできない入力に対する拒否です。
func InvalidURL() *Error {
	return &Error{
		Code:    CodeInvalidURL,
		Message: "invalid url",
		Status:  http.StatusBadRequest,
	}
}

// InvalidSlug は、許可された文字クラスに収まらないスラッグに対する拒否です。
func InvalidSlug() *Error {
	return &Error{
		Code:    CodeInvalidSlug,
		Message: "invalid slug characters (a-z, 0-9, _ , - only)",
		Status:  http.StatusBadRequest,
	}
}

// MissingParameter は、slug も url も指定されなかった場合の拒否です。
func MissingParameter() *Error {
	return &Error{
		Code:    CodeMissingParameter,
		Message: "missing ?slug= or ?url=",
		Status:  http.StatusBadRequest,
	}
}

// MissingSlugs は、バッチ照会でスラッグリストが空だった場合の拒否です。
func MissingSlugs() *Error {
	return &Error{
		Code:    CodeMissingParameter,
		Message: "missing ?slugs=slug1,slug2",
		Status:  http.StatusBadRequest,
	}
}

// ForbiddenHost は、許可リスト外ホストへの解決を拒否します。
// メッセージには許可されているホストを列挙します。
func ForbiddenHost(allowed []string) *Error {
	return &Error{
		Code:    CodeForbiddenHost,
		Message: "forbidden host (allowed: " + strings.Join(allowed, ", ") + ")",
		Status:  http.StatusForbidden,
	}
}

// ForbiddenTarget は、フェッチ直前の再検証で弾かれたターゲットの拒否です。
func ForbiddenTarget(source string) *Error {
	return &Error{
		Code:    CodeForbiddenHost,
		Message: "forbidden host",
		Status:  http.StatusForbidden,
		Context: map[string]any{"source": source},
	}
}

// ForbiddenRedirect は、リダイレクト先が許可リスト外だった場合の拒否です。
// 遷移元と遷移先の両方のURLを記録します。
func ForbiddenRedirect(from, to string) *Error {
	return &Error{
		Code:    CodeForbiddenHost,
		Message: "redirected to forbidden host",
		Status:  http.StatusForbidden,
		Context: map[string]any{"from": from, "to": to},
	}
}

// TooManyRedirects は、リダイレクト回数が上限を超えた場合のエラーです。
// ループや誤設定されたチェーンを示すため、上流エラーとは区別します。
func TooManyRedirects(source string) *Error {
	return &Error{
		Code:    CodeTooManyRedirects,
		Message: "too many redirects",
		Status:  http.StatusLoopDetected,
		Context: map[string]any{"source": source},
	}
}

// Upstream は、最終レスポンスが非200だった場合のエラーです。
// 上流のステータスコードをそのまま引き継ぎ、ボディ冒頭のプレビューを添付します。
func Upstream(status int, reason, preview, source string) *Error {
	if reason == "" {
		reason = "upstream error"
	}
	return &Error{
		Code:    CodeUpstream,
		Message: fmt.Sprintf("upstream %d", status),
		Status:  status,
		Context: map[string]any{
			"reason":  reason,
			"preview": preview,
			"source":  source,
		},
	}
}

// FetchFailure は、ネットワーク・トランスポート例外を包む汎用の失敗です。
// リクエストが完了していない可能性があるため、元のターゲットURLを記録します。
func FetchFailure(err error, source string) *Error {
	return &Error{
		Code:     CodeFetchFailure,
		Message:  err.Error(),
		Status:   http.StatusInternalServerError,
		Context:  map[string]any{"source": source},
		Internal: err,
	}
}
