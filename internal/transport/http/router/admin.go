package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"skillswap/internal/core/auth"
	"skillswap/internal/core/server"
	"skillswap/internal/domain"
	"skillswap/internal/service"
	mdw "skillswap/internal/transport/http/middleware"
)

func NewAdminEngine(l *zap.Logger, svc *service.Services, jwter *auth.JWTer, o Options) *gin.Engine {
	if l == nil {
		l = zap.NewNop()
	}
	lim := withDefaults(o.Limits)
	r := server.NewRouter(l, o.Server)

	r.Use(chain(l, lim)...)

	// 健康检查 + Prometheus
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/ready", readiness(svc.Store))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 管理端 v1（统一要求 admin 角色）
	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(jwter, domain.RoleAdmin))

	reg := &Registry{}
	reg.Register(adminModule{deps{log: l, svc: svc, jwt: jwter, limits: lim}})
	reg.MountAllAdmin(admin)

	return r
}
