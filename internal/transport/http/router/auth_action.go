package router

import (
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"skillswap/internal/domain"
	"skillswap/internal/service"
	"skillswap/internal/transport/http/ez"
	mdw "skillswap/internal/transport/http/middleware"
)

// authModule 注册/登录 + /me
type authModule struct{ deps }

type tokenOut struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

func (authModule) Priority() int { return 10 }

func (m authModule) MountAPI(api *gin.RouterGroup) {
	// 公共分组（无需登录），按 IP 限速防爆破
	public := ez.New(api.Group("/auth", mdw.RateLimitPerIP(rate.Limit(m.limits.AuthRPS), m.limits.AuthBurst)), m.log)

	type registerIn struct {
		Email         string   `json:"email"     binding:"required,email,max=254"`
		Username      string   `json:"username"  binding:"required,min=3,max=64"`
		Password      string   `json:"password"  binding:"required,min=8,max=72"`
		FirstName     string   `json:"firstName" binding:"max=30"`
		LastName      string   `json:"lastName"  binding:"max=30"`
		OfferedSkills []string `json:"offeredSkills"`
		WantedSkills  []string `json:"wantedSkills"`
	}
	ez.RegisterAction[registerIn, tokenOut](public, ez.Action[registerIn, tokenOut]{
		Method: http.MethodPost,
		Path:   "/register",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *registerIn) (tokenOut, error) {
			u, err := m.svc.Users.Register(c.Request.Context(), service.RegisterInput{
				Email:         in.Email,
				Username:      in.Username,
				Password:      in.Password,
				FirstName:     in.FirstName,
				LastName:      in.LastName,
				OfferedSkills: in.OfferedSkills,
				WantedSkills:  in.WantedSkills,
			})
			if err != nil {
				return tokenOut{}, err
			}
			return m.issue(u)
		},
	})

	// login 可以是邮箱也可以是用户名；兼容只传 email 的老客户端
	type loginIn struct {
		Login    string `json:"login"`
		Email    string `json:"email"`
		Password string `json:"password" binding:"required"`
	}
	ez.RegisterAction[loginIn, tokenOut](public, ez.Action[loginIn, tokenOut]{
		Method: http.MethodPost,
		Path:   "/login",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (tokenOut, error) {
			login := strings.TrimSpace(in.Login)
			if login == "" {
				login = strings.TrimSpace(in.Email)
			}
			if login == "" {
				return tokenOut{}, ez.BadRequest("login is required")
			}
			u, err := m.svc.Users.Login(c.Request.Context(), login, in.Password)
			if err != nil {
				return tokenOut{}, err
			}
			return m.issue(u)
		},
	})

	// 用未过期的 token 换新 token；封禁或改角色后在这里生效
	renew := ez.New(api.Group("/auth", mdw.AuthJWT(m.jwt, "")), m.log)
	ez.RegisterAction[struct{}, tokenOut](renew, ez.Action[struct{}, tokenOut]{
		Method: http.MethodPost,
		Path:   "/refresh",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (tokenOut, error) {
			u, err := m.svc.Users.Refresh(c.Request.Context(), ez.UserID(c))
			if err != nil {
				return tokenOut{}, err
			}
			return m.issue(u)
		},
	})

	// 鉴权分组（⚠️ /me 必须挂这里，才能拿到 userId）
	authed := ez.New(api.Group("/me", mdw.AuthJWT(m.jwt, "")), m.log)

	ez.RegisterAction[struct{}, *domain.User](authed, ez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			return m.svc.Users.Me(c.Request.Context(), ez.UserID(c))
		},
	})

	type profileIn struct {
		FirstName    *string `json:"firstName"    binding:"omitempty,max=30"`
		LastName     *string `json:"lastName"     binding:"omitempty,max=30"`
		Bio          *string `json:"bio"          binding:"omitempty,max=500"`
		Location     *string `json:"location"     binding:"omitempty,max=100"`
		Availability *string `json:"availability" binding:"omitempty,oneof=available busy"`
		IsPublic     *bool   `json:"isPublic"`
	}
	ez.RegisterAction[profileIn, *domain.User](authed, ez.Action[profileIn, *domain.User]{
		Method: http.MethodPut,
		Path:   "",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *profileIn) (*domain.User, error) {
			return m.svc.Users.UpdateProfile(c.Request.Context(), ez.UserID(c), service.ProfileInput{
				FirstName:    in.FirstName,
				LastName:     in.LastName,
				Bio:          in.Bio,
				Location:     in.Location,
				Availability: in.Availability,
				IsPublic:     in.IsPublic,
			})
		},
	})

	// 头像：multipart 字段名 avatar
	authed.POSTFILE("/avatar", "avatar", func(c *gin.Context, fh *multipart.FileHeader) (any, error) {
		f, err := fh.Open()
		if err != nil {
			return nil, ez.BadRequest("cannot read uploaded file")
		}
		defer f.Close()
		return m.svc.Users.UploadAvatar(c.Request.Context(), ez.UserID(c), fh.Filename, fh.Header.Get("Content-Type"), fh.Size, f)
	})

	// 我给出的评价
	ez.RegisterAction[pageQ, any](authed, ez.Action[pageQ, any]{
		Method: http.MethodGet,
		Path:   "/ratings/given",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *pageQ) (any, error) {
			p := in.page()
			list, total, err := m.svc.Aggregator.ListGiven(c.Request.Context(), ez.UserID(c), p)
			if err != nil {
				return nil, err
			}
			return pageOf(ratingViews(list), total, p), nil
		},
	})
}

func (m authModule) issue(u *domain.User) (tokenOut, error) {
	tok, exp, err := m.jwt.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		return tokenOut{}, ez.Internal("issue token failed", err)
	}
	return tokenOut{Token: tok, ExpiresAt: exp, User: u}, nil
}
