package domain

import (
	"errors"
	"fmt"
)

// Kind 稳定的机器可读错误类型，直接透出给调用方
type Kind string

const (
	KindValidation        Kind = "validation"
	KindInvalidSkillName  Kind = "invalid_skill_name"
	KindInvalidScore      Kind = "invalid_score"
	KindSameUser          Kind = "same_user"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindUserNotFound      Kind = "user_not_found"
	KindInvalidTransition Kind = "invalid_transition"
	KindNotEligible       Kind = "not_eligible"
	KindDuplicateRating   Kind = "duplicate_rating"
	KindConflict          Kind = "conflict"
)

// Error 业务错误：Kind 用于匹配，Msg 给人看
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return string(e.Kind)
}

// Is 按 Kind 匹配，errors.Is(err, ErrForbidden) 与具体文案无关
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// 哨兵错误（只用于 errors.Is 比较）
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrInvalidSkillName  = &Error{Kind: KindInvalidSkillName}
	ErrInvalidScore      = &Error{Kind: KindInvalidScore}
	ErrSameUser          = &Error{Kind: KindSameUser}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrUserNotFound      = &Error{Kind: KindUserNotFound}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrNotEligible       = &Error{Kind: KindNotEligible}
	ErrDuplicateRating   = &Error{Kind: KindDuplicateRating}
	ErrConflict          = &Error{Kind: KindConflict}
)

func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// TransitionError 状态迁移不在迁移表内（或 CAS 时状态已被别人改掉）
type TransitionError struct {
	From SwapStatus
	To   SwapStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move swap request from %q to %q", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == KindInvalidTransition
}

// KindOf 取出错误链上的 Kind；非业务错误返回空串
func KindOf(err error) Kind {
	var te *TransitionError
	if errors.As(err, &te) {
		return KindInvalidTransition
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
