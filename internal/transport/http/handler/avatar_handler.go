package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"skillswap/internal/service"
	"skillswap/internal/transport/http/ez"
	mdw "skillswap/internal/transport/http/middleware"
	resp "skillswap/internal/transport/http/response"
)

// AvatarHandler 头像读取直接回二进制流，不走 JSON 信封
type AvatarHandler struct {
	users *service.UserService
	log   *zap.Logger
}

func NewAvatarHandler(users *service.UserService, l *zap.Logger) *AvatarHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &AvatarHandler{users: users, log: l}
}

// Get GET /users/:id/avatar
func (h *AvatarHandler) Get(c *gin.Context) {
	rc, ct, err := h.users.OpenAvatar(c.Request.Context(), c.Param("id"))
	if err != nil {
		code, kind, msg := ez.Classify(err)
		if code == resp.CodeServerError {
			h.log.Error("open avatar", zap.String("user", c.Param("id")), zap.Error(err))
		}
		mdw.Abort(c, code, kind, msg)
		return
	}
	defer rc.Close()

	c.Header("Cache-Control", "private, max-age=300")
	c.Header("Content-Type", ct)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.log.Warn("stream avatar", zap.String("user", c.Param("id")), zap.Error(err))
	}
}
