package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skillswap/internal/domain"
	"skillswap/internal/service"
	"skillswap/internal/transport/http/ez"
	mdw "skillswap/internal/transport/http/middleware"
)

// swapModule 交换请求 + 评价
type swapModule struct{ deps }

func (swapModule) Priority() int { return 40 }

func (m swapModule) MountAPI(api *gin.RouterGroup) {
	e := ez.New(api.Group("/swaps", mdw.AuthJWT(m.jwt, "")), m.log)

	type createIn struct {
		ToUserID         string `json:"toUserId"`
		OfferedSkill     string `json:"offeredSkill"`
		WantedSkill      string `json:"wantedSkill"`
		Message          string `json:"message"`
		ProposedDuration *int   `json:"proposedDuration"`
		PreferredFormat  string `json:"preferredFormat"`
	}
	ez.RegisterAction[createIn, swapView](e, ez.Action[createIn, swapView]{
		Method: http.MethodPost,
		Path:   "",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *createIn) (swapView, error) {
			r, err := m.svc.Swaps.Create(c.Request.Context(), ez.UserID(c), service.CreateSwapInput{
				ToUserID:         in.ToUserID,
				OfferedSkill:     in.OfferedSkill,
				WantedSkill:      in.WantedSkill,
				Message:          in.Message,
				ProposedDuration: in.ProposedDuration,
				PreferredFormat:  in.PreferredFormat,
			})
			if err != nil {
				return swapView{}, err
			}
			return toSwapView(r), nil
		},
	})

	type listQ struct {
		pageQ
		Direction string `form:"direction"`
		Status    string `form:"status"`
	}
	ez.RegisterAction[listQ, any](e, ez.Action[listQ, any]{
		Method: http.MethodGet,
		Path:   "",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *listQ) (any, error) {
			p := in.page()
			list, total, err := m.svc.Swaps.List(c.Request.Context(), ez.UserID(c), in.Direction, domain.SwapStatus(in.Status), p)
			if err != nil {
				return nil, err
			}
			return pageOf(swapViews(list), total, p), nil
		},
	})

	e.GET("/:id", func(c *gin.Context) (any, error) {
		r, err := m.svc.Swaps.Get(c.Request.Context(), ez.UserID(c), c.Param("id"), ez.IsAdmin(c))
		if err != nil {
			return nil, err
		}
		return toSwapView(r), nil
	})

	// 快捷动作：/accept /reject /complete /cancel
	for action, to := range map[string]domain.SwapStatus{
		"accept":   domain.SwapAccepted,
		"reject":   domain.SwapRejected,
		"complete": domain.SwapCompleted,
		"cancel":   domain.SwapCancelled,
	} {
		to := to
		ez.RegisterAction[struct{}, swapView](e, ez.Action[struct{}, swapView]{
			Method: http.MethodPost,
			Path:   "/:id/" + action,
			Binder: ez.BindNone,
			Auth:   true,
			Handler: func(c *gin.Context, _ *struct{}) (swapView, error) {
				return m.transition(c, to)
			},
		})
	}

	type transitionIn struct {
		Status string `json:"status" binding:"required"`
	}
	ez.RegisterAction[transitionIn, swapView](e, ez.Action[transitionIn, swapView]{
		Method: http.MethodPost,
		Path:   "/:id/transition",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *transitionIn) (swapView, error) {
			return m.transition(c, domain.SwapStatus(in.Status))
		},
	})

	type rateIn struct {
		Score           float64 `json:"score"`
		Feedback        string  `json:"feedback"`
		TeachingQuality *int    `json:"teachingQuality"`
		Communication   *int    `json:"communication"`
		Reliability     *int    `json:"reliability"`
	}
	ez.RegisterAction[rateIn, *domain.Rating](e, ez.Action[rateIn, *domain.Rating]{
		Method: http.MethodPost,
		Path:   "/:id/ratings",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *rateIn) (*domain.Rating, error) {
			return m.svc.Aggregator.SubmitRating(c.Request.Context(), ez.UserID(c), c.Param("id"), service.RatingInput{
				Score:           in.Score,
				Feedback:        in.Feedback,
				TeachingQuality: in.TeachingQuality,
				Communication:   in.Communication,
				Reliability:     in.Reliability,
			})
		},
	})
}

func (m swapModule) transition(c *gin.Context, to domain.SwapStatus) (swapView, error) {
	r, err := m.svc.Swaps.Transition(c.Request.Context(), ez.UserID(c), c.Param("id"), to)
	if err != nil {
		return swapView{}, err
	}
	return toSwapView(r), nil
}
