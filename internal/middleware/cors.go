// Package middleware は、全エンドポイント共通のginミドルウェアを提供します。
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS は全レスポンスにCORSヘッダを付与します。
// このAPIは読み取り専用の公開APIのため、オリジンは常にワイルドカードです。
// OPTIONS プリフライトは 204 で即応答します。
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		header.Set("Access-Control-Max-Age", "86400")
		header.Set("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
