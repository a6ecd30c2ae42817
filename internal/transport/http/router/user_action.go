package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skillswap/internal/domain"
	"skillswap/internal/service"
	"skillswap/internal/transport/http/ez"
	"skillswap/internal/transport/http/handler"
	mdw "skillswap/internal/transport/http/middleware"
	resp "skillswap/internal/transport/http/response"
)

// userModule 发现用户、公开资料、徽章、收到的评价
type userModule struct{ deps }

func (userModule) Priority() int { return 20 }

func (m userModule) MountAPI(api *gin.RouterGroup) {
	g := api.Group("", mdw.AuthJWT(m.jwt, ""))
	e := ez.New(g, m.log)

	type discoverQ struct {
		pageQ
		Q            string `form:"q"`
		Skill        string `form:"skill"`
		Availability string `form:"availability"`
	}
	ez.RegisterAction[discoverQ, any](e, ez.Action[discoverQ, any]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *discoverQ) (any, error) {
			p := in.page()
			us, total, err := m.svc.Users.Discover(c.Request.Context(), ez.UserID(c), service.DiscoverInput{
				Q: in.Q, Skill: in.Skill, Availability: in.Availability, Page: p,
			})
			if err != nil {
				return nil, err
			}
			return pageOf(userCards(us), total, p), nil
		},
	})

	e.GET("/users/:id", func(c *gin.Context) (any, error) {
		return m.svc.Users.PublicProfile(c.Request.Context(), ez.UserID(c), c.Param("id"))
	})

	e.GET("/users/:id/badges", func(c *gin.Context) (any, error) {
		bs, err := m.svc.Users.Badges(c.Request.Context(), c.Param("id"))
		if bs == nil && err == nil {
			bs = []domain.UserBadge{}
		}
		return bs, err
	})

	type skillsQ struct {
		Type string `form:"type"`
	}
	ez.RegisterAction[skillsQ, []domain.UserSkill](e, ez.Action[skillsQ, []domain.UserSkill]{
		Method: http.MethodGet,
		Path:   "/users/:id/skills",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *skillsQ) ([]domain.UserSkill, error) {
			list, err := m.svc.Users.Skills(c.Request.Context(), c.Param("id"), domain.SkillType(in.Type))
			if list == nil && err == nil {
				list = []domain.UserSkill{}
			}
			return list, err
		},
	})

	ez.RegisterAction[pageQ, resp.Page[ratingView]](e, ez.Action[pageQ, resp.Page[ratingView]]{
		Method: http.MethodGet,
		Path:   "/users/:id/ratings",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *pageQ) (resp.Page[ratingView], error) {
			p := in.page()
			list, total, err := m.svc.Aggregator.ListReceived(c.Request.Context(), c.Param("id"), p)
			if err != nil {
				return resp.Page[ratingView]{}, err
			}
			return pageOf(ratingViews(list), total, p), nil
		},
	})

	g.GET("/users/:id/avatar", handler.NewAvatarHandler(m.svc.Users, m.log).Get)

	e.GET("/badges", func(c *gin.Context) (any, error) {
		return m.svc.Users.BadgeCatalog(c.Request.Context())
	})
}
