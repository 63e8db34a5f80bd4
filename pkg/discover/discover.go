// Package discover は、待ち時間サイトの一覧ページからアトラクションの
// スラッグを列挙します。設定ファイルのカタログを更新する際の補助です。
package discover

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	textutil "github.com/shouni/go-utils/text"
)

// Fetcher は、HTMLドキュメントの生バイト配列を取得する機能のインターフェースです。
// Discoverer は、この抽象に依存します。
type Fetcher interface {
	FetchBytes(url string, ctx context.Context) ([]byte, error)
}

// Attraction は一覧ページから見つかったアトラクションです。
type Attraction struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Href  string `json:"href"`
}

// Discoverer は、Fetcher を使ってアトラクション一覧の抽出プロセスを管理します。
type Discoverer struct {
	fetcher Fetcher
}

// 個別ページへのリンクは /attraction/<slug>.html の形を取ります。
var reAttractionHref = regexp.MustCompile(`/attraction/([A-Za-z0-9_-]+)\.html`)

// NewDiscoverer は、新しいDiscovererのインスタンスを生成します。
func NewDiscoverer(fetcher Fetcher) (*Discoverer, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("discover.NewDiscoverer: Fetcher cannot be nil")
	}
	return &Discoverer{fetcher: fetcher}, nil
}

// Discover は一覧ページを取得し、見つかったアトラクションを文書順で返します。
// 同じスラッグへのリンクが複数あっても、最初の1件だけを採用します。
func (d *Discoverer) Discover(ctx context.Context, url string) ([]Attraction, error) {
	body, err := d.fetcher.FetchBytes(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("一覧ページの取得に失敗しました (%s): %w", url, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("一覧ページの解析に失敗しました: %w", err)
	}

	seen := make(map[string]struct{})
	var found []Attraction

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		m := reAttractionHref.FindStringSubmatch(href)
		if m == nil {
			return
		}
		slug := m[1]
		if _, ok := seen[slug]; ok {
			return
		}
		seen[slug] = struct{}{}

		title := textutil.NormalizeText(strings.TrimSpace(sel.Text()))
		found = append(found, Attraction{
			Slug:  slug,
			Title: title,
			Href:  href,
		})
	})

	return found, nil
}
