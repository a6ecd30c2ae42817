package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	resp "skillswap/internal/transport/http/response"
)

// ConcurrencyLimit 同时在处理的请求不超过 max；排队等到请求超时就回 busy
func ConcurrencyLimit(max int64) gin.HandlerFunc {
	sem := semaphore.NewWeighted(max)
	return func(c *gin.Context) {
		if err := sem.Acquire(c.Request.Context(), 1); err != nil {
			Abort(c, resp.CodeUnavailable, "busy", "server busy")
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}
