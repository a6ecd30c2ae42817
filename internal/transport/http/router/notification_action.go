package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skillswap/internal/domain"
	"skillswap/internal/transport/http/ez"
	mdw "skillswap/internal/transport/http/middleware"
)

type notificationModule struct{ deps }

func (notificationModule) Priority() int { return 50 }

func (m notificationModule) MountAPI(api *gin.RouterGroup) {
	e := ez.New(api.Group("/notifications", mdw.AuthJWT(m.jwt, "")), m.log)

	type listQ struct {
		pageQ
		Unread bool   `form:"unread"`
		Type   string `form:"type"`
	}
	ez.RegisterAction[listQ, any](e, ez.Action[listQ, any]{
		Method: http.MethodGet,
		Path:   "",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *listQ) (any, error) {
			p := in.page()
			list, total, err := m.svc.Notifications.List(c.Request.Context(), ez.UserID(c), in.Unread, domain.NotificationType(in.Type), p)
			if err != nil {
				return nil, err
			}
			return pageOf(list, total, p), nil
		},
	})

	e.GET("/unread-count", func(c *gin.Context) (any, error) {
		n, err := m.svc.Notifications.UnreadCount(c.Request.Context(), ez.UserID(c))
		if err != nil {
			return nil, err
		}
		return gin.H{"count": n}, nil
	})

	ez.RegisterAction[struct{}, gin.H](e, ez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/:id/read",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if err := m.svc.Notifications.MarkRead(c.Request.Context(), ez.UserID(c), id); err != nil {
				return nil, err
			}
			return gin.H{"id": id}, nil
		},
	})

	ez.RegisterAction[struct{}, gin.H](e, ez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/read-all",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			n, err := m.svc.Notifications.MarkAllRead(c.Request.Context(), ez.UserID(c))
			if err != nil {
				return nil, err
			}
			return gin.H{"updated": n}, nil
		},
	})
}
