package resolver

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/shouni/usj-wait-api/pkg/apperr"
)

// slugPattern は、スラッグとして受け付ける文字クラスを定義します。
var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Query は呼び出し側から渡される照会条件です。slug と url のどちらか一方を指定します。
type Query struct {
	Slug string
	URL  string
}

// Resolver は、スラッグまたは生URLを許可リスト内の正規URLへ解決します。
// 副作用を持たず、同一の入力と静的マッピングに対して決定的に動作します。
type Resolver struct {
	allowHosts  []string
	primaryHost string
	overrides   map[string]string
}

// New は、新しいResolverのインスタンスを生成します。
// overrides は既知スラッグの静的な上書きマッピングです（nil可）。
func New(allowHosts []string, primaryHost string, overrides map[string]string) (*Resolver, error) {
	if len(allowHosts) == 0 {
		return nil, fmt.Errorf("resolver.New: 許可ホストリストが空です")
	}
	if primaryHost == "" {
		primaryHost = allowHosts[0]
	}
	return &Resolver{
		allowHosts:  allowHosts,
		primaryHost: primaryHost,
		overrides:   overrides,
	}, nil
}

// Allowed は、ホスト名が許可リストに含まれるかを判定します。
func (r *Resolver) Allowed(host string) bool {
	for _, h := range r.allowHosts {
		if h == host {
			return true
		}
	}
	return false
}

// AllowHosts は許可リストのコピーを返します。
func (r *Resolver) AllowHosts() []string {
	hosts := make([]string, len(r.allowHosts))
	copy(hosts, r.allowHosts)
	return hosts
}

// Resolve は照会条件を検証し、フェッチ可能なターゲットURLを返します。
//   - url 指定: 絶対URLとしてパースでき、ホストが許可リストに含まれること。
//   - slug 指定: 文字クラスを検証し、上書きマッピング → 正規URL合成の順で解決。
//   - どちらも無い場合はパラメータ不足として拒否。
func (r *Resolver) Resolve(q Query) (string, *apperr.Error) {
	if q.URL != "" {
		target, err := url.Parse(q.URL)
		if err != nil || !target.IsAbs() || target.Host == "" {
			return "", apperr.InvalidURL()
		}
		if !r.Allowed(target.Hostname()) {
			return "", apperr.ForbiddenHost(r.allowHosts)
		}
		return target.String(), nil
	}

	if q.Slug == "" {
		return "", apperr.MissingParameter()
	}
	if !slugPattern.MatchString(q.Slug) {
		return "", apperr.InvalidSlug()
	}
	if mapped, ok := r.overrides[q.Slug]; ok {
		return mapped, nil
	}
	return fmt.Sprintf("https://%s/attraction/%s.html", r.primaryHost, q.Slug), nil
}
