// Package waitstats は、アトラクションの待ち時間統計ページ（HTML）から
// 構造化された統計値を抽出します。
//
// 対象サイトのマークアップは安定しておらず機械向けでもないため、DOM解析では
// なく、ラベルを起点とした窓付き正規表現で抽出します。取れないフィールドは
// null になるだけで、抽出自体は決して失敗しません。
package waitstats

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	textutil "github.com/shouni/go-utils/text"
)

const (
	// DefaultAttractionLabel は、タイトルが取得できなかった場合の既定値です。
	DefaultAttractionLabel = "USJ Attraction"

	// statsMarker は統計セクションの見出しテキストです。この直後の窓を検索対象とします。
	statsMarker = "待ち時間統計"

	// statsWindowRunes は、見出し以降で検索対象とする最大文字数です。
	statsWindowRunes = 2000
)

// Record は抽出された待ち時間統計のレコードです。
// 数値・時刻フィールドはページに存在しない場合 null になります。
type Record struct {
	Attraction string  `json:"attraction"`
	Current    *int    `json:"current"`
	AvgToday   *int    `json:"avg_today"`
	Median     *int    `json:"median"`
	Min        *int    `json:"min"`
	MinTime    *string `json:"min_time"`
	Max        *int    `json:"max"`
	MaxTime    *string `json:"max_time"`
	AvgWeek    *int    `json:"avg_week"`
	AvgMonth   *int    `json:"avg_month"`
	Updated    *string `json:"updated"`
	ScrapedAt  string  `json:"scraped_at"`
	Source     string  `json:"source"`
}

// ----------------------------------------------------------------------
// 正規表現の定義
// ----------------------------------------------------------------------

var (
	reScript     = regexp.MustCompile(`(?is)<script[\s\S]*?</script>`)
	reStyle      = regexp.MustCompile(`(?is)<style[\s\S]*?</style>`)
	reLineBreak  = regexp.MustCompile(`(?i)<br\s*/?>`)
	reBlockClose = regexp.MustCompile(`(?i)</(p|li|tr|h\d|section|div)>`)
	reTag        = regexp.MustCompile(`<[^>]+>`)

	reOgTitle = regexp.MustCompile(`(?i)<meta\s+property=["']og:title["']\s+content=["']([^"']+)["']`)
	reTitle   = regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)

	// 「M/D HH:MM」形式の日付付き時刻から日付部分を落とします。
	// 鮮度の判定には同日の時刻だけが意味を持ちます。
	reDatedTime = regexp.MustCompile(`(\d{1,2})/(\d{1,2})\s*([0-2]?\d:[0-5]\d)`)

	reCurrent = regexp.MustCompile(`(リアルタイム|現在|最新)\s*:?\s*([0-9]{1,4})\s*分`)

	// 更新時刻は3パターンを優先順に試します（最初にマッチしたものを採用）。
	reUpdatedPrefix = regexp.MustCompile(`(?:最終)?更新\s*[:：]?\s*([0-2]?\d:[0-5]\d)`)
	reUpdatedEn     = regexp.MustCompile(`(?i)Updated\s*[:：]?\s*([0-2]?\d:[0-5]\d)`)
	reUpdatedSuffix = regexp.MustCompile(`([0-2]?\d:[0-5]\d)\s*(?:に)?\s*(?:最終)?更新`)

	reAvgToday1 = labeledNumber("本日の平均")
	reAvgToday2 = labeledNumber("今日の平均")
	reAvgAny    = labeledNumber("平均待ち時間")
	reMedian    = labeledNumber("中央値")
	reAvgWeek   = labeledNumber("今週の平均")
	reAvgMonth  = labeledNumber("今月の平均")

	reMin     = labeledNumberWithTime("最小")
	reMinOnly = labeledNumber("最小")
	reMax     = labeledNumberWithTime("最大")
	reMaxOnly = labeledNumber("最大")
)

// labeledNumber は「<ラベル> : <1〜4桁の数値> 分」を抽出するパターンを構築します。
func labeledNumber(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `\s*:?\s*([0-9]{1,4})\s*分`)
}

// labeledNumberWithTime は、数値の後続に「HH:MM」の時刻が付くパターンを構築します。
func labeledNumberWithTime(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `\s*:?\s*([0-9]{1,4})\s*分[^0-9:]*([0-9]{1,2}:[0-9]{2})`)
}

// ----------------------------------------------------------------------
// 正規化ヘルパー
// ----------------------------------------------------------------------

// stripTags はHTMLをプレーンテキストへ落とします。
// script/style は丸ごと除去し、brとブロック要素の閉じタグを改行に変換してから
// 残りのタグを除去、最後に空白の連続を単一スペースへ畳み込みます。
func stripTags(html string) string {
	text := reScript.ReplaceAllString(html, " ")
	text = reStyle.ReplaceAllString(text, " ")
	text = reLineBreak.ReplaceAllString(text, "\n")
	text = reBlockClose.ReplaceAllString(text, "\n")
	text = reTag.ReplaceAllString(text, " ")
	return textutil.NormalizeText(text)
}

// toHalfWidth は全角数字をASCII数字へ、全角のコロン・ピリオド・カンマを
// 対応する半角記号へ正規化します。かな・漢字はそのまま残します。
func toHalfWidth(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '０' && r <= '９':
			return '0' + (r - '０')
		case r == '：':
			return ':'
		case r == '．':
			return '.'
		case r == '，':
			return ','
		}
		return r
	}, s)
}

// extractTitle は og:title → <title> → 既定ラベル の順でタイトルを決めます。
// 正規化前の生HTMLに対して検索します。
func extractTitle(html string) string {
	if m := reOgTitle.FindStringSubmatch(html); m != nil {
		if title := strings.TrimSpace(m[1]); title != "" {
			return title
		}
	}
	if m := reTitle.FindStringSubmatch(html); m != nil {
		if title := strings.TrimSpace(m[1]); title != "" {
			return title
		}
	}
	return DefaultAttractionLabel
}

// statsWindow は、統計見出し以降の検索窓を切り出します。
// 見出しが無いページでは全文を窓として使います。
func statsWindow(text string) string {
	idx := strings.Index(text, statsMarker)
	if idx < 0 {
		return text
	}
	window := []rune(text[idx:])
	if len(window) > statsWindowRunes {
		window = window[:statsWindowRunes]
	}
	return string(window)
}

func matchNumber(re *regexp.Regexp, window string) *int {
	m := re.FindStringSubmatch(window)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[len(m)-1])
	if err != nil {
		return nil
	}
	return &n
}

// matchNumberWithTime は数値と時刻の組を抽出します。
// 組のパターンが外れた場合でも、数値単独のパターンにフォールバックします
// （その場合の時刻は null）。
func matchNumberWithTime(re, fallback *regexp.Regexp, window string) (*int, *string) {
	if m := re.FindStringSubmatch(window); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			t := m[2]
			return &n, &t
		}
	}
	return matchNumber(fallback, window), nil
}

func firstNumber(window string, patterns ...*regexp.Regexp) *int {
	for _, re := range patterns {
		if n := matchNumber(re, window); n != nil {
			return n
		}
	}
	return nil
}

func matchUpdated(window string) *string {
	for _, re := range []*regexp.Regexp{reUpdatedPrefix, reUpdatedEn, reUpdatedSuffix} {
		if m := re.FindStringSubmatch(window); m != nil {
			t := m[1]
			return &t
		}
	}
	return nil
}

// ----------------------------------------------------------------------
// 抽出のエントリポイント
// ----------------------------------------------------------------------

// Extract は生HTMLと取得元URLから統計レコードを組み立てます。
// 純粋関数であり、フィールドが見つからない場合も null を返すのみでエラーに
// なりません。scraped_at は呼び出し時点のUTC時刻です。
func Extract(html, source string) *Record {
	// 1. タグ除去と全角→半角の正規化
	text := toHalfWidth(stripTags(html))

	// 2. 統計見出し以降の窓を切り出し、日付付き時刻を時刻のみへ畳む
	window := reDatedTime.ReplaceAllString(statsWindow(text), "${3}")

	// 3. 各フィールドの抽出
	var current *int
	if m := reCurrent.FindStringSubmatch(window); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil {
			current = &n
		}
	}

	minVal, minTime := matchNumberWithTime(reMin, reMinOnly, window)
	maxVal, maxTime := matchNumberWithTime(reMax, reMaxOnly, window)

	return &Record{
		Attraction: extractTitle(html),
		Current:    current,
		AvgToday:   firstNumber(window, reAvgToday1, reAvgToday2, reAvgAny),
		Median:     matchNumber(reMedian, window),
		Min:        minVal,
		MinTime:    minTime,
		Max:        maxVal,
		MaxTime:    maxTime,
		AvgWeek:    matchNumber(reAvgWeek, window),
		AvgMonth:   matchNumber(reAvgMonth, window),
		Updated:    matchUpdated(window),
		ScrapedAt:  time.Now().UTC().Format(time.RFC3339),
		Source:     source,
	}
}
