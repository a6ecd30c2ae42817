package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"skillswap/internal/core/auth"
	"skillswap/internal/core/config"
	"skillswap/internal/core/database"
	"skillswap/internal/core/server"
	"skillswap/internal/repo"
	"skillswap/internal/service"
	mdw "skillswap/internal/transport/http/middleware"
	resp "skillswap/internal/transport/http/response"
)

type Options struct {
	Server server.Options
	Limits config.Limits
}

// deps 各模块共享的依赖
type deps struct {
	log    *zap.Logger
	svc    *service.Services
	jwt    *auth.JWTer
	limits config.Limits
}

func NewAPIEngine(l *zap.Logger, svc *service.Services, jwter *auth.JWTer, o Options) *gin.Engine {
	if l == nil {
		l = zap.NewNop()
	}
	lim := withDefaults(o.Limits)
	r := server.NewRouter(l, o.Server)

	// 中间件
	r.Use(chain(l, lim)...)

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/ready", readiness(svc.Store))

	// 前缀
	api := r.Group("/api/v1")

	d := deps{log: l, svc: svc, jwt: jwter, limits: lim}
	reg := &Registry{}
	reg.Register(
		authModule{d},
		userModule{d},
		skillModule{d},
		swapModule{d},
		notificationModule{d},
	)
	reg.MountAllAPI(api)

	return r
}

func chain(l *zap.Logger, lim config.Limits) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		mdw.RequestID(),
		mdw.RateLimit(rate.Limit(lim.RPS), lim.Burst),
		mdw.ConcurrencyLimit(lim.MaxConcurrent),
		mdw.MaxBodyBytes(lim.MaxBodyMB << 20),
		mdw.Timeout(time.Duration(lim.TimeoutSec) * time.Second),
		mdw.Recovery(l),
		mdw.Metrics(),
		mdw.AccessLog(l),
	}
}

// withDefaults 配置里没给的按默认值
func withDefaults(l config.Limits) config.Limits {
	if l.RPS <= 0 {
		l.RPS = 200
	}
	if l.Burst <= 0 {
		l.Burst = 400
	}
	if l.AuthRPS <= 0 {
		l.AuthRPS = 5
	}
	if l.AuthBurst <= 0 {
		l.AuthBurst = 10
	}
	if l.MaxConcurrent <= 0 {
		l.MaxConcurrent = 300
	}
	if l.MaxBodyMB <= 0 {
		l.MaxBodyMB = 16
	}
	if l.TimeoutSec <= 0 {
		l.TimeoutSec = 10
	}
	return l
}

// readiness 连得上库才算就绪
func readiness(store *repo.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := database.Ping(c.Request.Context(), store.DB()); err != nil {
			c.JSON(http.StatusServiceUnavailable, resp.Error(resp.CodeUnavailable, "database unavailable"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": 1})
	}
}

// pageQ 通用分页参数
type pageQ struct {
	Offset int `form:"offset"`
	Limit  int `form:"limit"`
}

func (p pageQ) page() repo.Page { return repo.Page{Offset: p.Offset, Limit: p.Limit}.Normalize() }

func pageOf[T any](list []T, total int64, p repo.Page) resp.Page[T] {
	if list == nil {
		list = []T{}
	}
	return resp.Page[T]{List: list, Total: total, Offset: p.Offset, Limit: p.Limit}
}
