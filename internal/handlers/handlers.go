// Package handlers は、APIのルーティングとレスポンス組み立てを担当します。
// 照会のロジック自体は internal/service に委譲します。
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shouni/usj-wait-api/internal/config"
	"github.com/shouni/usj-wait-api/internal/middleware"
	"github.com/shouni/usj-wait-api/internal/service"
	"github.com/shouni/usj-wait-api/internal/usage"
)

const robotsBody = "User-agent: *\nDisallow: /\n"

// API は、全エンドポイントのハンドラ集合です。
type API struct {
	svc     *service.Service
	catalog []config.CatalogItem
}

// New は新しいAPIを生成します。
func New(svc *service.Service, catalog []config.CatalogItem) *API {
	return &API{svc: svc, catalog: catalog}
}

// NewRouter は、ミドルウェアとルーティングを構成したginエンジンを返します。
func NewRouter(api *API, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.CORS())

	router.GET("/api/wait", api.Wait)
	router.GET("/api/waits", api.Waits)
	router.GET("/api/catalog", api.Catalog)
	router.GET("/api/usage", api.Usage)
	router.GET("/api/health", api.Health)
	router.GET("/robots.txt", api.Robots)

	// 既定は利用方法の案内（未知パスは404にしない）
	router.NoRoute(api.Usage)
	router.NoMethod(api.MethodNotAllowed)

	return router
}

// Wait は単体照会エンドポイントです。
func (a *API) Wait(c *gin.Context) {
	out := a.svc.LookupOne(c.Request.Context(), c.Request.URL.Path, c.Request.URL.Query())
	c.JSON(out.Status, out.Body)
}

// Waits はバッチ照会エンドポイントです。
// 個別スラッグの失敗はボディ内に現れ、外側は常に200です。
func (a *API) Waits(c *gin.Context) {
	out := a.svc.LookupMany(c.Request.Context(), c.Request.URL.Path, c.Request.URL.Query())
	c.JSON(out.Status, out.Body)
}

// Catalog は既知アトラクションの静的カタログを返します。
func (a *API) Catalog(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, gin.H{
		"version":      1,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
		"items":        a.catalog,
	})
}

// Usage はAPI利用方法を返します。未知パスの既定応答にも使われます。
func (a *API) Usage(c *gin.Context) {
	c.JSON(http.StatusOK, usage.New())
}

// Health は死活確認エンドポイントです。
func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"ts":      time.Now().UTC().Format(time.RFC3339),
		"version": usage.Version,
	})
}

// Robots はクロール全面拒否の robots.txt を返します。
func (a *API) Robots(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(robotsBody))
}

// MethodNotAllowed はGET以外のメソッドへの応答です。
func (a *API) MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{
		"error": "method not allowed",
		"usage": usage.New(),
	})
}
