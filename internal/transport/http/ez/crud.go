package ez

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skillswap/internal/domain"
	"skillswap/internal/repo"
	mdw "skillswap/internal/transport/http/middleware"
	resp "skillswap/internal/transport/http/response"
	"skillswap/pkg/utils"
)

// Hook
type CrudHooks[T any] struct {
	BeforeCreate func(c *gin.Context, m *T) error
	BeforeUpdate func(c *gin.Context, m *T) error
	ScopeList    func(c *gin.Context, q *gorm.DB) *gorm.DB // 自定义筛选/排序
	AfterGet     func(c *gin.Context, m *T)
	AfterWrite   func(c *gin.Context, ownerID string) // 增/改/删成功后（如清缓存）
}

type CrudConfig[T any] struct {
	DB    *gorm.DB
	Group *gin.RouterGroup // 已鉴权分组（能拿 userId）
	Path  string
	New   func() *T

	Hooks CrudHooks[T]

	AllowCreate bool
	AllowList   bool
	AllowGet    bool
	AllowUpdate bool
	AllowDelete bool

	IDField    string // 默认 "ID"
	OwnerField string // 默认优先 "OwnerID"，其次 "UserID"/"UID"

	AutoID bool          // 默认 true
	IDGen  func() string // 默认 utils.NewID

	// 列表排序（列名按模型字段自动转 snake_case），为空则按 ID DESC
	OrderBy string // 例如 "CreatedAt DESC"
}

// 反射 & 工具
func (c *CrudConfig[T]) idFieldCandidates() []string {
	if c.IDField != "" {
		return []string{c.IDField, "ID", "Id"}
	}
	return []string{"ID", "Id"}
}

func (c *CrudConfig[T]) ownerFieldCandidates() []string {
	if c.OwnerField != "" {
		return []string{c.OwnerField, "OwnerID", "UserID", "UID"}
	}
	return []string{"OwnerID", "UserID", "UID"}
}

// ownerColumnField 模型上实际存在的 owner 字段名
func (c *CrudConfig[T]) ownerColumnField() string {
	m := c.New()
	t := reflect.TypeOf(m).Elem()
	for _, cand := range c.ownerFieldCandidates() {
		if _, ok := t.FieldByName(cand); ok {
			return cand
		}
	}
	return "UserID"
}

// owned id + owner 双条件，零值也照样参与过滤
func owned(idCol, id, ownerCol, uid string) clause.Expression {
	return clause.And(
		clause.Eq{Column: clause.Column{Name: idCol}, Value: id},
		clause.Eq{Column: clause.Column{Name: ownerCol}, Value: uid},
	)
}

func writeErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		mdw.Abort(c, resp.CodeNotFound, string(domain.KindNotFound), "not found")
	case repo.IsDupKey(err):
		mdw.Abort(c, resp.CodeConflict, string(domain.KindConflict), "already exists")
	default:
		code, kind, msg := Classify(err)
		mdw.Abort(c, code, kind, msg)
	}
}

func getStringFieldPtr(obj any, candidates []string) (*string, bool) {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Ptr {
		return nil, false
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return nil, false
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		// 未导出字段跳过
		if f.PkgPath != "" {
			continue
		}
		for _, cand := range candidates {
			if f.Name == cand {
				fv := v.Field(i)
				if fv.Kind() == reflect.String && fv.CanSet() {
					p := fv.Addr().Interface().(*string)
					return p, true
				}
			}
		}
	}
	return nil, false
}

func readStringField(obj any, candidates []string) (string, bool) {
	p, ok := getStringFieldPtr(obj, candidates)
	if !ok {
		return "", false
	}
	return *p, true
}

func writeStringField(obj any, candidates []string, val string) bool {
	p, ok := getStringFieldPtr(obj, candidates)
	if !ok {
		return false
	}
	*p = val
	return true
}

func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}

func toSnake(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CRUD 注册（无需模型实现任何接口）
func Crud[T any](cfg CrudConfig[T]) {
	// 默认放开所有操作
	if !cfg.AllowCreate && !cfg.AllowGet && !cfg.AllowList && !cfg.AllowUpdate && !cfg.AllowDelete {
		cfg.AllowCreate, cfg.AllowList, cfg.AllowGet, cfg.AllowUpdate, cfg.AllowDelete = true, true, true, true, true
	}
	// 默认 AutoID/IDGen
	if cfg.AutoID == false && cfg.IDGen == nil {
		// 显式设置了 AutoID=false 则不生成；否则默认生成
		cfg.AutoID = true
	}
	if cfg.IDGen == nil {
		cfg.IDGen = utils.NewID
	}
	idFieldNames := cfg.idFieldCandidates()
	ownerFieldNames := cfg.ownerFieldCandidates()
	ownerCol := toSnake(cfg.ownerColumnField())
	idCol := toSnake(idFieldNames[0])
	afterWrite := func(c *gin.Context, uid string) {
		if cfg.Hooks.AfterWrite != nil {
			cfg.Hooks.AfterWrite(c, uid)
		}
	}

	// Create
	if cfg.AllowCreate {
		cfg.Group.POST(cfg.Path, func(c *gin.Context) {
			m := cfg.New()
			if err := c.ShouldBindJSON(m); err != nil {
				mdw.Abort(c, resp.CodeBadRequest, string(domain.KindValidation), err.Error())
				return
			}
			uid := UserID(c)
			if uid == "" {
				mdw.Abort(c, resp.CodeUnauthorized, string(domain.KindUnauthorized), "unauthorized")
				return
			}
			// 自动生成 ID（若开启且为空）
			if cfg.AutoID {
				if id, ok := readStringField(m, idFieldNames); !ok {
					mdw.Abort(c, resp.CodeBadRequest, string(domain.KindValidation), "id field not found")
					return
				} else if strings.TrimSpace(id) == "" {
					_ = writeStringField(m, idFieldNames, cfg.IDGen())
				}
			}
			// 写 Owner
			if !writeStringField(m, ownerFieldNames, uid) {
				mdw.Abort(c, resp.CodeBadRequest, string(domain.KindValidation), "owner field not found")
				return
			}

			if cfg.Hooks.BeforeCreate != nil {
				if err := cfg.Hooks.BeforeCreate(c, m); err != nil {
					writeErr(c, err)
					return
				}
			}
			if err := cfg.DB.WithContext(c.Request.Context()).Omit(clause.Associations).Create(m).Error; err != nil {
				writeErr(c, err)
				return
			}
			afterWrite(c, uid)
			if cfg.Hooks.AfterGet != nil {
				cfg.Hooks.AfterGet(c, m)
			}
			c.JSON(http.StatusOK, resp.OK(m))
		})
	}

	// List（我的）
	if cfg.AllowList {
		cfg.Group.GET(cfg.Path, func(c *gin.Context) {
			uid := UserID(c)
			if uid == "" {
				mdw.Abort(c, resp.CodeUnauthorized, string(domain.KindUnauthorized), "unauthorized")
				return
			}
			page := repo.Page{Offset: atoiDefault(c.Query("offset"), 0), Limit: atoiDefault(c.Query("limit"), 0)}.Normalize()

			q := cfg.DB.WithContext(c.Request.Context()).Model(cfg.New()).
				Where(clause.Eq{Column: clause.Column{Name: ownerCol}, Value: uid})
			if cfg.Hooks.ScopeList != nil {
				q = cfg.Hooks.ScopeList(c, q)
			}

			var total int64
			if err := q.Count(&total).Error; err != nil {
				writeErr(c, err)
				return
			}

			var items []T
			// 动态排序：优先按配置 OrderBy，否则按 ID DESC
			if cfg.OrderBy != "" {
				q = q.Order(cfg.OrderBy)
			} else {
				q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: idCol}, Desc: true})
			}
			if err := q.Limit(page.Limit).Offset(page.Offset).Find(&items).Error; err != nil {
				writeErr(c, err)
				return
			}
			if cfg.Hooks.AfterGet != nil {
				for i := range items {
					cfg.Hooks.AfterGet(c, &items[i])
				}
			}
			c.JSON(http.StatusOK, resp.OK(resp.Page[T]{List: items, Total: total, Offset: page.Offset, Limit: page.Limit}))
		})
	}

	// Get
	if cfg.AllowGet {
		cfg.Group.GET(cfg.Path+"/:id", func(c *gin.Context) {
			uid := UserID(c)
			if uid == "" {
				mdw.Abort(c, resp.CodeUnauthorized, string(domain.KindUnauthorized), "unauthorized")
				return
			}
			id := c.Param("id")

			m := cfg.New()
			if err := cfg.DB.WithContext(c.Request.Context()).Where(owned(idCol, id, ownerCol, uid)).First(m).Error; err != nil {
				writeErr(c, err)
				return
			}
			if cfg.Hooks.AfterGet != nil {
				cfg.Hooks.AfterGet(c, m)
			}
			c.JSON(http.StatusOK, resp.OK(m))
		})
	}

	// Update
	if cfg.AllowUpdate {
		cfg.Group.PUT(cfg.Path+"/:id", func(c *gin.Context) {
			uid := UserID(c)
			if uid == "" {
				mdw.Abort(c, resp.CodeUnauthorized, string(domain.KindUnauthorized), "unauthorized")
				return
			}
			id := c.Param("id")

			// 先确认归属
			check := cfg.New()
			if err := cfg.DB.WithContext(c.Request.Context()).Where(owned(idCol, id, ownerCol, uid)).First(check).Error; err != nil {
				writeErr(c, err)
				return
			}

			in := cfg.New()
			if err := c.ShouldBindJSON(in); err != nil {
				mdw.Abort(c, resp.CodeBadRequest, string(domain.KindValidation), err.Error())
				return
			}
			// 强制保持 ID/Owner
			_ = writeStringField(in, idFieldNames, id)
			_ = writeStringField(in, ownerFieldNames, uid)

			if cfg.Hooks.BeforeUpdate != nil {
				if err := cfg.Hooks.BeforeUpdate(c, in); err != nil {
					writeErr(c, err)
					return
				}
			}
			if err := cfg.DB.WithContext(c.Request.Context()).Model(cfg.New()).Omit(clause.Associations).
				Where(owned(idCol, id, ownerCol, uid)).Updates(in).Error; err != nil {
				writeErr(c, err)
				return
			}
			afterWrite(c, uid)
			m := cfg.New()
			if err := cfg.DB.WithContext(c.Request.Context()).Where(owned(idCol, id, ownerCol, uid)).First(m).Error; err != nil {
				writeErr(c, err)
				return
			}
			if cfg.Hooks.AfterGet != nil {
				cfg.Hooks.AfterGet(c, m)
			}
			c.JSON(http.StatusOK, resp.OK(m))
		})
	}

	// Delete
	if cfg.AllowDelete {
		cfg.Group.DELETE(cfg.Path+"/:id", func(c *gin.Context) {
			uid := UserID(c)
			if uid == "" {
				mdw.Abort(c, resp.CodeUnauthorized, string(domain.KindUnauthorized), "unauthorized")
				return
			}
			id := c.Param("id")

			res := cfg.DB.WithContext(c.Request.Context()).Where(owned(idCol, id, ownerCol, uid)).Delete(cfg.New())
			if res.Error != nil {
				writeErr(c, res.Error)
				return
			}
			if res.RowsAffected == 0 {
				mdw.Abort(c, resp.CodeNotFound, string(domain.KindNotFound), "not found")
				return
			}
			afterWrite(c, uid)
			c.JSON(http.StatusOK, resp.OK(gin.H{"id": id}))
		})
	}
}
