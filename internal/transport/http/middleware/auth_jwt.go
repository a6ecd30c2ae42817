package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"skillswap/internal/core/auth"
	"skillswap/internal/domain"
	resp "skillswap/internal/transport/http/response"
)

// 上下文 key
const (
	KeyClaims = "claims"
	KeyUserID = "userId"
	KeyRole   = "role"
)

// AuthJWT 校验 Bearer token；requireRole 非空时同时校验角色
func AuthJWT(j *auth.JWTer, requireRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			Abort(c, resp.CodeUnauthorized, string(domain.KindUnauthorized), "missing token")
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			Abort(c, resp.CodeUnauthorized, string(domain.KindUnauthorized), "invalid token")
			return
		}
		if requireRole != "" && claims.Role != requireRole {
			Abort(c, resp.CodeForbidden, string(domain.KindForbidden), "forbidden")
			return
		}
		c.Set(KeyClaims, claims)
		c.Set(KeyUserID, claims.UID)
		c.Set(KeyRole, claims.Role)
		c.Next()
	}
}

// OptionalJWT 有合法 token 就带上身份，没有也放行（公开资料页等）
func OptionalJWT(j *auth.JWTer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if strings.HasPrefix(ah, "Bearer ") {
			if claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer ")); err == nil {
				c.Set(KeyClaims, claims)
				c.Set(KeyUserID, claims.UID)
				c.Set(KeyRole, claims.Role)
			}
		}
		c.Next()
	}
}
