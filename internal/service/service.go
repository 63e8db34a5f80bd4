// Package service は、照会キーからレスポンスまでの合成ルートです。
// Resolver → Fetcher → 抽出 の順に呼び出し、結果をキャッシュアサイド方式で
// ストアへ書き込みます。単体照会とバッチ照会の両方を提供します。
package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shouni/usj-wait-api/internal/cache"
	"github.com/shouni/usj-wait-api/internal/usage"
	"github.com/shouni/usj-wait-api/pkg/apperr"
	"github.com/shouni/usj-wait-api/pkg/fetcher"
	"github.com/shouni/usj-wait-api/pkg/resolver"
	"github.com/shouni/usj-wait-api/pkg/waitstats"
)

// PageFetcher は、ターゲットURLのHTML取得機能のインターフェースです。
type PageFetcher interface {
	Fetch(ctx context.Context, target string) (*fetcher.Result, *apperr.Error)
}

// Outcome は、HTTPレスポンスとして返す {status, body} の組です。
type Outcome struct {
	Status int
	Body   any
}

// cacheEntry は、キャッシュに保存するシリアライズ済みレスポンスです。
// ヒット時は保存したステータスとボディをそのまま返します。
type cacheEntry struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// Service はキャッシュアサイドのオーケストレーターです。
type Service struct {
	resolver   *resolver.Resolver
	fetcher    PageFetcher
	store      cache.Store
	defaultTTL time.Duration
	maxTTL     time.Duration
	log        *zap.Logger
}

// New は新しいServiceを生成します。log はnil可（その場合は出力しません）。
func New(r *resolver.Resolver, f PageFetcher, store cache.Store, defaultTTL, maxTTL time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		resolver:   r,
		fetcher:    f,
		store:      store,
		defaultTTL: defaultTTL,
		maxTTL:     maxTTL,
		log:        log,
	}
}

// ----------------------------------------------------------------------
// キャッシュキーとTTL
// ----------------------------------------------------------------------

// cacheKey は、リクエストの同一性を表す正規化キーを構築します。
// メソッド・パス・クエリ全体（TTLパラメータ含む）がキーの一部です。
// url.Values.Encode はキーをソートするため、パラメータ順に依存しません。
func cacheKey(path string, params url.Values) string {
	return http.MethodGet + " " + path + "?" + params.Encode()
}

// TTL は cache クエリパラメータを解釈します。
// 不正・負値はデフォルトへフォールバックし、上限でクランプします。
func (s *Service) TTL(params url.Values) time.Duration {
	raw := params.Get("cache")
	if raw == "" {
		return s.defaultTTL
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return s.defaultTTL
	}
	ttl := time.Duration(seconds) * time.Second
	if ttl > s.maxTTL {
		return s.maxTTL
	}
	return ttl
}

func (s *Service) cacheGet(ctx context.Context, key string) (*cacheEntry, bool) {
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		// ストア障害はキャッシュミスに格下げする（照会自体は続行できる）
		s.log.Warn("キャッシュ読み取りに失敗しました", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		s.log.Warn("キャッシュエントリのデコードに失敗しました", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &entry, true
}

func (s *Service) cachePut(ctx context.Context, key string, out Outcome, ttl time.Duration) {
	body, err := json.Marshal(out.Body)
	if err != nil {
		s.log.Warn("キャッシュエントリのエンコードに失敗しました", zap.String("key", key), zap.Error(err))
		return
	}
	raw, err := json.Marshal(cacheEntry{Status: out.Status, Body: body})
	if err != nil {
		s.log.Warn("キャッシュエントリのエンコードに失敗しました", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.store.Set(ctx, key, raw, ttl); err != nil {
		s.log.Warn("キャッシュ書き込みに失敗しました", zap.String("key", key), zap.Error(err))
	}
}

// ----------------------------------------------------------------------
// 照会
// ----------------------------------------------------------------------

// scrape はターゲットを取得して統計を抽出し、レスポンスの組を返します。
func (s *Service) scrape(ctx context.Context, target string) Outcome {
	result, ferr := s.fetcher.Fetch(ctx, target)
	if ferr != nil {
		return Outcome{Status: ferr.Status, Body: ferr.Body()}
	}
	record := waitstats.Extract(result.HTML, result.FinalURL)
	return Outcome{Status: http.StatusOK, Body: record}
}

// LookupOne は単体照会を実行します。
// path と params は受信リクエストのものをそのまま渡します（キー正規化に使用）。
// 解決の拒否には利用方法ドキュメントを添付し、キャッシュには触れません。
func (s *Service) LookupOne(ctx context.Context, path string, params url.Values) Outcome {
	query := resolver.Query{Slug: params.Get("slug"), URL: params.Get("url")}
	target, rerr := s.resolver.Resolve(query)
	if rerr != nil {
		body := rerr.Body()
		body["usage"] = usage.New()
		return Outcome{Status: rerr.Status, Body: body}
	}

	key := cacheKey(path, params)
	if entry, ok := s.cacheGet(ctx, key); ok {
		return Outcome{Status: entry.Status, Body: entry.Body}
	}

	out := s.scrape(ctx, target)
	s.cachePut(ctx, key, out, s.TTL(params))
	return out
}

// slugResult はバッチ照会の1スラッグ分の結果です。
type slugResult struct {
	slug string
	body any
}

// LookupMany はバッチ照会を実行します。
// 各スラッグは独立・無順序に並行処理され、1件の失敗が他へ波及することは
// ありません。外側のステータスは常に200で、失敗はマッピングの値として
// 表現されます。
func (s *Service) LookupMany(ctx context.Context, path string, params url.Values) Outcome {
	slugs := splitSlugs(params.Get("slugs"))
	if len(slugs) == 0 {
		body := apperr.MissingSlugs().Body()
		body["usage"] = usage.New()
		return Outcome{Status: http.StatusBadRequest, Body: body}
	}

	ttl := s.TTL(params)

	var wg sync.WaitGroup
	resultsChan := make(chan slugResult, len(slugs))

	for _, slug := range slugs {
		wg.Add(1)
		go func(slug string) {
			defer wg.Done()
			resultsChan <- slugResult{slug: slug, body: s.lookupSlug(ctx, path, params, slug, ttl)}
		}(slug)
	}

	wg.Wait()
	close(resultsChan)

	mapping := make(map[string]any, len(slugs))
	for res := range resultsChan {
		mapping[res.slug] = res.body
	}
	return Outcome{Status: http.StatusOK, Body: mapping}
}

// lookupSlug は、バッチ内の1スラッグ分のキャッシュアサイド処理です。
// キーはバッチのパラメータを引き継ぎつつ slugs を単体の slug に置き換えた
// 正規形から導出します。
func (s *Service) lookupSlug(ctx context.Context, path string, params url.Values, slug string, ttl time.Duration) any {
	perSlug := cloneValues(params)
	perSlug.Del("slugs")
	perSlug.Set("slug", slug)

	key := cacheKey(path, perSlug)
	if entry, ok := s.cacheGet(ctx, key); ok {
		return entry.Body
	}

	target, rerr := s.resolver.Resolve(resolver.Query{Slug: slug})
	if rerr != nil {
		// 解決の拒否はキャッシュしない
		return map[string]any{"error": rerr.Message}
	}

	out := s.scrape(ctx, target)
	s.cachePut(ctx, key, out, ttl)
	return out.Body
}

func splitSlugs(raw string) []string {
	var slugs []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			slugs = append(slugs, trimmed)
		}
	}
	return slugs
}

func cloneValues(params url.Values) url.Values {
	cloned := make(url.Values, len(params))
	for key, values := range params {
		cloned[key] = append([]string(nil), values...)
	}
	return cloned
}
