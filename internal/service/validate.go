package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"skillswap/internal/domain"
)

// validate 服务层入参校验；HTTP 层的 binding 标签是同一套规则
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// handle 用户名：不含空白和 @（登录时靠 @ 区分邮箱）
	_ = v.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), " \t\r\n@")
	})
	return v
}

// check 校验失败转成 validation 错误，只报第一个字段
func check(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		return domain.Errorf(domain.KindValidation, "%s %s", strings.ToLower(fe.Field()), describe(fe))
	}
	return fmt.Errorf("validate: %w", err)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a plain email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "handle":
		return "must not contain spaces or @"
	}
	return "is invalid"
}
