package ez

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"skillswap/internal/domain"
	mdw "skillswap/internal/transport/http/middleware"
	resp "skillswap/internal/transport/http/response"
)

/* ================== 轻封装 ================== */

type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ {
	if l == nil {
		l = zap.NewNop()
	}
	return EZ{g: g, log: l}
}

func (e EZ) Group() *gin.RouterGroup { return e.g }

func (e EZ) GET(path string, h func(c *gin.Context) (any, error)) {
	e.g.GET(path, func(c *gin.Context) {
		data, err := h(c)
		if err != nil {
			e.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, resp.OK(data))
	})
}

// POSTFILE 处理 multipart/form-data 单文件上传
func (e EZ) POSTFILE(path string, fieldName string, h func(c *gin.Context, file *multipart.FileHeader) (any, error)) {
	e.g.POST(path, func(c *gin.Context) {
		file, err := c.FormFile(fieldName)
		if err != nil {
			mdw.Abort(c, resp.CodeBadRequest, string(domain.KindValidation), "missing file field "+fieldName)
			return
		}
		data, err := h(c, file)
		if err != nil {
			e.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, resp.OK(data))
	})
}

/* ================== Action（非 CRUD 一行注册） ================== */

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定
)

// 统一错误对象（配合 resp.Error(int, msg)）
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

// 鉴权/权限/不存在一律走 domain.Kind，这里只留入参错误和内部错误
func BadRequest(msg string) error { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string   // "GET" | "POST" | "PUT" | "DELETE"
	Path    string   // 例："/auth/login"、"/swaps/:id/accept"
	Binder  Binder   // 绑定方式
	Auth    bool     // 是否要求登录（检查 userId）
	Roles   []string // 限定角色（可选）
	Handler func(c *gin.Context, in *I) (O, error)
}

// RegisterAction 在当前 EZ 下注册动作接口；事务由 service 层负责
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		// 1) 鉴权/角色
		if a.Auth {
			if UserID(c) == "" {
				mdw.Abort(c, resp.CodeUnauthorized, string(domain.KindUnauthorized), "unauthorized")
				return
			}
			if len(a.Roles) > 0 {
				role := c.GetString(mdw.KeyRole)
				ok := false
				for _, r := range a.Roles {
					if role == r {
						ok = true
						break
					}
				}
				if !ok {
					mdw.Abort(c, resp.CodeForbidden, string(domain.KindForbidden), "forbidden")
					return
				}
			}
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		default: // BindNone: 不绑定
		}
		if bindErr != nil {
			mdw.Abort(c, resp.CodeBadRequest, string(domain.KindValidation), bindErr.Error())
			return
		}

		// 3) 执行 + 统一错误映射
		out, err := a.Handler(c, &in)
		if err != nil {
			e.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default: // 默认 POST
		e.g.POST(a.Path, h)
	}
}

// Fail 错误 -> 响应；非业务错误记日志且不把内部细节透给调用方
func (e EZ) Fail(c *gin.Context, err error) {
	code, kind, msg := Classify(err)
	if code == resp.CodeServerError {
		e.log.Error("request failed",
			zap.String("rid", c.GetString(mdw.KeyRequestID)),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	mdw.Abort(c, code, kind, msg)
}

// Classify 业务错误类型 -> 响应码
func Classify(err error) (code int, kind, msg string) {
	var ae *AErr
	if errors.As(err, &ae) {
		if ae.Code == resp.CodeServerError {
			return ae.Code, "", ae.Msg
		}
		return ae.Code, "", ae.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return resp.CodeTimeout, "", "timeout"
	}
	k := domain.KindOf(err)
	switch k {
	case domain.KindValidation, domain.KindInvalidSkillName, domain.KindInvalidScore, domain.KindSameUser:
		code = resp.CodeBadRequest
	case domain.KindUnauthorized:
		code = resp.CodeUnauthorized
	case domain.KindForbidden:
		code = resp.CodeForbidden
	case domain.KindNotFound, domain.KindUserNotFound:
		code = resp.CodeNotFound
	case domain.KindInvalidTransition, domain.KindNotEligible, domain.KindDuplicateRating, domain.KindConflict:
		code = resp.CodeConflict
	default:
		return resp.CodeServerError, "", "internal error"
	}
	return code, string(k), err.Error()
}

func UserID(c *gin.Context) string { return c.GetString(mdw.KeyUserID) }

func IsAdmin(c *gin.Context) bool { return c.GetString(mdw.KeyRole) == domain.RoleAdmin }
