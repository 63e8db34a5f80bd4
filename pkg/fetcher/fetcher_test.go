package fetcher_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/shouni/usj-wait-api/pkg/apperr"
	"github.com/shouni/usj-wait-api/pkg/fetcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAllowedFetcher は、テストサーバーのホストを許可リストに入れたFetcherを返します。
func newAllowedFetcher(t *testing.T, srv *httptest.Server, options ...fetcher.Option) *fetcher.Fetcher {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return fetcher.New(5*time.Second, []string{u.Hostname()}, options...)
}

func TestFetchSuccess(t *testing.T) {
	const page = "<html><body>待ち時間統計</body></html>"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// ブラウザ相当のヘッダが付与されていること
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.Equal(t, "ja,en;q=0.9", r.Header.Get("Accept-Language"))
		assert.Contains(t, r.Header.Get("Referer"), "http://")
		assert.Contains(t, r.Header.Get("Accept"), "text/html")
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	f := newAllowedFetcher(t, srv)
	res, ferr := f.Fetch(context.Background(), srv.URL+"/attraction/test.html")
	require.Nil(t, ferr)
	assert.Equal(t, srv.URL+"/attraction/test.html", res.FinalURL)
	assert.Equal(t, page, res.HTML)
}

func TestFetchForbiddenTarget(t *testing.T) {
	f := fetcher.New(time.Second, []string{"allowed.example"})
	res, ferr := f.Fetch(context.Background(), "https://evil.example/page.html")
	assert.Nil(t, res)
	require.NotNil(t, ferr)
	assert.Equal(t, apperr.CodeForbiddenHost, ferr.Code)
	assert.Equal(t, "https://evil.example/page.html", ferr.Context["source"])
}

func TestFetchRedirectChain(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// /hop?n=K は n>0 の間リダイレクトを繰り返し、n=0 で本文を返す
	mux.HandleFunc("/hop", func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.URL.Query().Get("n"))
		if n > 0 {
			http.Redirect(w, r, fmt.Sprintf("/hop?n=%d", n-1), http.StatusFound)
			return
		}
		fmt.Fprint(w, "final")
	})

	f := newAllowedFetcher(t, srv)

	t.Run("chain_within_bound_succeeds", func(t *testing.T) {
		res, ferr := f.Fetch(context.Background(), srv.URL+"/hop?n=5")
		require.Nil(t, ferr)
		assert.Equal(t, "final", res.HTML)
		assert.Equal(t, srv.URL+"/hop?n=0", res.FinalURL)
	})

	t.Run("chain_over_bound_fails", func(t *testing.T) {
		res, ferr := f.Fetch(context.Background(), srv.URL+"/hop?n=6")
		assert.Nil(t, res)
		require.NotNil(t, ferr)
		assert.Equal(t, apperr.CodeTooManyRedirects, ferr.Code)
		assert.Equal(t, http.StatusLoopDetected, ferr.Status)
	})
}

func TestFetchRedirectToForbiddenHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://evil.example/steal", http.StatusMovedPermanently)
	}))
	defer srv.Close()

	f := newAllowedFetcher(t, srv)
	res, ferr := f.Fetch(context.Background(), srv.URL+"/page.html")
	assert.Nil(t, res)
	require.NotNil(t, ferr)
	assert.Equal(t, apperr.CodeForbiddenHost, ferr.Code)
	assert.Equal(t, srv.URL+"/page.html", ferr.Context["from"])
	assert.Equal(t, "https://evil.example/steal", ferr.Context["to"])
}

func TestFetchRedirectWithoutLocation(t *testing.T) {
	// Location の無い3xxは最終レスポンスとして扱われ、上流エラーになる
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMovedPermanently)
		fmt.Fprint(w, "no location")
	}))
	defer srv.Close()

	f := newAllowedFetcher(t, srv)
	res, ferr := f.Fetch(context.Background(), srv.URL+"/page.html")
	assert.Nil(t, res)
	require.NotNil(t, ferr)
	assert.Equal(t, apperr.CodeUpstream, ferr.Code)
	assert.Equal(t, http.StatusMovedPermanently, ferr.Status)
}

func TestFetchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "<html>メンテナンス中</html>")
	}))
	defer srv.Close()

	f := newAllowedFetcher(t, srv)
	res, ferr := f.Fetch(context.Background(), srv.URL+"/page.html")
	assert.Nil(t, res)
	require.NotNil(t, ferr)
	assert.Equal(t, apperr.CodeUpstream, ferr.Code)
	assert.Equal(t, http.StatusServiceUnavailable, ferr.Status)
	assert.Equal(t, "upstream 503", ferr.Message)
	assert.Equal(t, "<html>メンテナンス中</html>", ferr.Context["preview"])
	assert.Equal(t, srv.URL+"/page.html", ferr.Context["source"])
}

func TestFetchUpstreamErrorPreviewTruncated(t *testing.T) {
	long := make([]byte, 0, 1000)
	for i := 0; i < 500; i++ {
		long = append(long, 'a', 'b')
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write(long) //nolint:errcheck
	}))
	defer srv.Close()

	f := newAllowedFetcher(t, srv)
	_, ferr := f.Fetch(context.Background(), srv.URL+"/missing.html")
	require.NotNil(t, ferr)
	previewStr, ok := ferr.Context["preview"].(string)
	require.True(t, ok)
	assert.Len(t, previewStr, 200)
}

func TestFetchNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL + "/page.html"
	f := newAllowedFetcher(t, srv)
	srv.Close() // 接続エラーを発生させる

	res, ferr := f.Fetch(context.Background(), target)
	assert.Nil(t, res)
	require.NotNil(t, ferr)
	assert.Equal(t, apperr.CodeFetchFailure, ferr.Code)
	assert.Equal(t, http.StatusInternalServerError, ferr.Status)
	assert.Equal(t, target, ferr.Context["source"])
}
