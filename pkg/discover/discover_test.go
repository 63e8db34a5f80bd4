package discover_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shouni/usj-wait-api/pkg/discover"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockFetcher はテスト用の discover.Fetcher インターフェースの実装です。
type MockFetcher struct {
	htmlContent string
	fetchError  error
}

func (m *MockFetcher) FetchBytes(url string, ctx context.Context) ([]byte, error) {
	if m.fetchError != nil {
		return nil, m.fetchError
	}
	return []byte(m.htmlContent), nil
}

func TestNewDiscoverer(t *testing.T) {
	t.Run("success_with_valid_fetcher", func(t *testing.T) {
		d, err := discover.NewDiscoverer(&MockFetcher{})
		assert.NoError(t, err)
		assert.NotNil(t, d)
	})

	t.Run("error_with_nil_fetcher", func(t *testing.T) {
		d, err := discover.NewDiscoverer(nil)
		assert.Error(t, err)
		assert.Nil(t, d)
		assert.Contains(t, err.Error(), "Fetcher cannot be nil")
	})
}

func TestDiscover(t *testing.T) {
	const listPage = `<html><body>
<ul>
  <li><a href="/attraction/hw_dream.html">ハリウッド・ドリーム・ザ・ライド</a></li>
  <li><a href="https://usjreal.asumirai.info/attraction/spyxr.html">
        スパイダーマン
        XR ライド</a></li>
  <li><a href="/attraction/hw_dream.html">同じページへの再リンク</a></li>
  <li><a href="/monthly/2026-09.html">月間カレンダー</a></li>
  <li><a href="/attraction/bad slug.html">無効なリンク</a></li>
</ul>
</body></html>`

	t.Run("extracts_slugs_in_document_order", func(t *testing.T) {
		d, err := discover.NewDiscoverer(&MockFetcher{htmlContent: listPage})
		require.NoError(t, err)

		found, err := d.Discover(context.Background(), "https://usjreal.asumirai.info/")
		require.NoError(t, err)
		require.Len(t, found, 2)

		assert.Equal(t, "hw_dream", found[0].Slug)
		assert.Equal(t, "ハリウッド・ドリーム・ザ・ライド", found[0].Title)
		assert.Equal(t, "/attraction/hw_dream.html", found[0].Href)

		// リンクテキスト内の連続空白は1つの空白へ畳まれる
		assert.Equal(t, "spyxr", found[1].Slug)
		assert.Equal(t, "スパイダーマン XR ライド", found[1].Title)
	})

	t.Run("fetch_error_is_propagated", func(t *testing.T) {
		d, err := discover.NewDiscoverer(&MockFetcher{fetchError: errors.New("network timeout")})
		require.NoError(t, err)

		found, err := d.Discover(context.Background(), "https://usjreal.asumirai.info/")
		assert.Error(t, err)
		assert.Nil(t, found)
		assert.Contains(t, err.Error(), "network timeout")
	})

	t.Run("page_without_links_yields_empty", func(t *testing.T) {
		d, err := discover.NewDiscoverer(&MockFetcher{htmlContent: "<html><body><p>準備中</p></body></html>"})
		require.NoError(t, err)

		found, err := d.Discover(context.Background(), "https://usjreal.asumirai.info/")
		require.NoError(t, err)
		assert.Empty(t, found)
	})
}
