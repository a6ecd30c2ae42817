package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"skillswap/internal/domain"
	"skillswap/internal/service"
	"skillswap/internal/transport/http/ez"
)

// adminModule 管理端：用户封禁、交换监控、广播、技能删除、统计
type adminModule struct{ deps }

func (m adminModule) MountAdmin(admin *gin.RouterGroup) {
	e := ez.New(admin, m.log)

	// --- GET /admin/v1/users  用户列表 ---
	type listQ struct {
		pageQ
		Q string `form:"q"` // 按 email/username 模糊搜
	}
	ez.RegisterAction[listQ, any](e, ez.Action[listQ, any]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindQuery,
		Auth:   true,
		Roles:  []string{domain.RoleAdmin},
		Handler: func(c *gin.Context, in *listQ) (any, error) {
			p := in.page()
			us, total, err := m.svc.Admin.ListUsers(c.Request.Context(), strings.TrimSpace(in.Q), p)
			if err != nil {
				return nil, err
			}
			return pageOf(us, total, p), nil
		},
	})

	// --- POST /admin/v1/users/:id/ban|unban ---
	for path, active := range map[string]bool{"/users/:id/ban": false, "/users/:id/unban": true} {
		active := active
		ez.RegisterAction[struct{}, gin.H](e, ez.Action[struct{}, gin.H]{
			Method: http.MethodPost,
			Path:   path,
			Binder: ez.BindNone,
			Auth:   true,
			Roles:  []string{domain.RoleAdmin},
			Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
				id := c.Param("id")
				if err := m.svc.Admin.SetActive(c.Request.Context(), ez.UserID(c), id, active); err != nil {
					return nil, err
				}
				return gin.H{"id": id, "isActive": active}, nil
			},
		})
	}

	// --- GET /admin/v1/swaps  交换监控 ---
	type swapsQ struct {
		pageQ
		Status string `form:"status"`
	}
	ez.RegisterAction[swapsQ, any](e, ez.Action[swapsQ, any]{
		Method: http.MethodGet,
		Path:   "/swaps",
		Binder: ez.BindQuery,
		Auth:   true,
		Roles:  []string{domain.RoleAdmin},
		Handler: func(c *gin.Context, in *swapsQ) (any, error) {
			p := in.page()
			list, total, err := m.svc.Swaps.Monitor(c.Request.Context(), domain.SwapStatus(in.Status), p)
			if err != nil {
				return nil, err
			}
			return pageOf(swapViews(list), total, p), nil
		},
	})

	e.GET("/swaps/:id", func(c *gin.Context) (any, error) {
		r, err := m.svc.Swaps.Get(c.Request.Context(), ez.UserID(c), c.Param("id"), true)
		if err != nil {
			return nil, err
		}
		return toSwapView(r), nil
	})

	// --- POST /admin/v1/notifications/broadcast ---
	type broadcastIn struct {
		Title   string `json:"title"   binding:"required"`
		Message string `json:"message" binding:"required"`
	}
	ez.RegisterAction[broadcastIn, gin.H](e, ez.Action[broadcastIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/notifications/broadcast",
		Binder: ez.BindJSON,
		Auth:   true,
		Roles:  []string{domain.RoleAdmin},
		Handler: func(c *gin.Context, in *broadcastIn) (gin.H, error) {
			n, err := m.svc.Admin.Broadcast(c.Request.Context(), ez.UserID(c), in.Title, in.Message)
			if err != nil {
				return nil, err
			}
			return gin.H{"recipients": n}, nil
		},
	})

	// --- DELETE /admin/v1/skills/:id  仅未被引用的技能 ---
	ez.RegisterAction[struct{}, gin.H](e, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/skills/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Roles:  []string{domain.RoleAdmin},
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if err := m.svc.Catalog.Delete(c.Request.Context(), id); err != nil {
				return nil, err
			}
			return gin.H{"id": id}, nil
		},
	})

	// --- 统计 ---
	ez.RegisterAction[struct{}, *service.PlatformStats](e, ez.Action[struct{}, *service.PlatformStats]{
		Method: http.MethodGet,
		Path:   "/stats",
		Binder: ez.BindNone,
		Auth:   true,
		Roles:  []string{domain.RoleAdmin},
		Handler: func(c *gin.Context, _ *struct{}) (*service.PlatformStats, error) {
			return m.svc.Admin.Stats(c.Request.Context())
		},
	})

	// 重算评分/完成数并补发徽章
	ez.RegisterAction[struct{}, gin.H](e, ez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/stats/recompute",
		Binder: ez.BindNone,
		Auth:   true,
		Roles:  []string{domain.RoleAdmin},
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			n, err := m.svc.Aggregator.RecomputeAll(c.Request.Context())
			if err != nil {
				return nil, err
			}
			return gin.H{"users": n}, nil
		},
	})
}
