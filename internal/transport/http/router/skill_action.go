package router

import (
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"skillswap/internal/domain"
	"skillswap/internal/repo"
	"skillswap/internal/transport/http/ez"
	mdw "skillswap/internal/transport/http/middleware"
)

// skillModule 技能目录 + 我的技能 CRUD
type skillModule struct{ deps }

func (skillModule) Priority() int { return 30 }

func (m skillModule) MountAPI(api *gin.RouterGroup) {
	g := api.Group("", mdw.AuthJWT(m.jwt, ""))
	e := ez.New(g, m.log)

	type listQ struct {
		pageQ
		Q        string `form:"q"`
		Category string `form:"category"`
	}
	ez.RegisterAction[listQ, any](e, ez.Action[listQ, any]{
		Method: http.MethodGet,
		Path:   "/skills",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *listQ) (any, error) {
			p := in.page()
			list, total, err := m.svc.Catalog.List(c.Request.Context(), in.Q, in.Category, p)
			if err != nil {
				return nil, err
			}
			return pageOf(list, total, p), nil
		},
	})

	type popularQ struct {
		Limit int `form:"limit"`
	}
	ez.RegisterAction[popularQ, []repo.SkillUsage](e, ez.Action[popularQ, []repo.SkillUsage]{
		Method: http.MethodGet,
		Path:   "/skills/popular",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *popularQ) ([]repo.SkillUsage, error) {
			if in.Limit <= 0 || in.Limit > 50 {
				in.Limit = 10
			}
			list, err := m.svc.Catalog.Popular(c.Request.Context(), in.Limit)
			if list == nil && err == nil {
				list = []repo.SkillUsage{}
			}
			return list, err
		},
	})

	e.GET("/skills/categories", func(c *gin.Context) (any, error) {
		return m.svc.Catalog.Categories(), nil
	})

	// /user-skills：技能按名称引用，落库前由目录解析
	ez.Crud(ez.CrudConfig[domain.UserSkill]{
		DB:      m.svc.Store.DB(),
		Group:   g,
		Path:    "/user-skills",
		New:     func() *domain.UserSkill { return &domain.UserSkill{} },
		OrderBy: "created_at DESC",
		Hooks: ez.CrudHooks[domain.UserSkill]{
			BeforeCreate: func(c *gin.Context, us *domain.UserSkill) error {
				if !us.SkillType.Valid() {
					return domain.Errorf(domain.KindValidation, "skillType must be offered or wanted")
				}
				if err := checkUserSkill(us); err != nil {
					return err
				}
				s, err := m.svc.Catalog.Resolve(c.Request.Context(), nil, us.SkillName)
				if err != nil {
					return err
				}
				us.SkillID, us.Skill = s.ID, s
				return nil
			},
			BeforeUpdate: func(c *gin.Context, us *domain.UserSkill) error {
				if us.SkillType != "" && !us.SkillType.Valid() {
					return domain.Errorf(domain.KindValidation, "skillType must be offered or wanted")
				}
				if err := checkUserSkill(us); err != nil {
					return err
				}
				// 不接受直接改 skillId，只能按名称换技能
				us.SkillID = ""
				if us.SkillName != "" {
					s, err := m.svc.Catalog.Resolve(c.Request.Context(), nil, us.SkillName)
					if err != nil {
						return err
					}
					us.SkillID = s.ID
				}
				return nil
			},
			ScopeList: func(c *gin.Context, q *gorm.DB) *gorm.DB {
				if t := domain.SkillType(c.Query("type")); t.Valid() {
					q = q.Where("skill_type = ?", t)
				}
				return q
			},
			AfterGet: func(c *gin.Context, us *domain.UserSkill) {
				if us.Skill == nil && us.SkillID != "" {
					s, err := m.svc.Store.Skills.FindByID(c.Request.Context(), us.SkillID)
					if err != nil {
						m.log.Warn("load skill for user skill", zap.String("skill", us.SkillID), zap.Error(err))
					}
					us.Skill = s
				}
				if us.Skill != nil {
					us.SkillName = us.Skill.Name
				}
			},
			AfterWrite: func(c *gin.Context, uid string) {
				m.svc.Aggregator.Invalidate(c.Request.Context(), uid)
			},
		},
	})
}

func checkUserSkill(us *domain.UserSkill) error {
	if !domain.ValidProficiency(us.Proficiency) {
		return domain.Errorf(domain.KindValidation, "proficiency must be one of %v", domain.Proficiencies)
	}
	if utf8.RuneCountInString(us.Description) > domain.MaxSkillDescriptionLen {
		return domain.Errorf(domain.KindValidation, "description exceeds %d characters", domain.MaxSkillDescriptionLen)
	}
	return nil
}
