package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skillswap/internal/domain"
	resp "skillswap/internal/transport/http/response"
)

// MaxBodyBytes 限制请求体大小（头像上传也走这里）
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			Abort(c, resp.CodeBadRequest, string(domain.KindValidation), "request body too large")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
		if c.Err() != nil && !c.Writer.Written() {
			Abort(c, resp.CodeBadRequest, string(domain.KindValidation), "request body too large")
		}
	}
}
