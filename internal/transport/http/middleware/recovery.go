package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	resp "skillswap/internal/transport/http/response"
)

// Recovery 业务 handler panic 时记日志并回统一信封；要挂在 RequestID 之后
func Recovery(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				l.Error("panic recovered",
					zap.String("rid", c.GetString(KeyRequestID)),
					zap.String("path", c.FullPath()),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()))
				Abort(c, resp.CodeServerError, "", "internal error")
			}
		}()
		c.Next()
	}
}
