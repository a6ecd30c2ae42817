package response

type Resp struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	// Kind 业务错误类型（如 invalid_transition），成功时省略
	Kind string      `json:"kind,omitempty"`
	Data interface{} `json:"data"`
}

// New 构造函数（保证 data 不为 null）
func New(code int, msg string, data interface{}) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Code: code, Msg: msg, Data: data}
}

// OK 成功响应
func OK(data interface{}) Resp {
	return New(CodeOK, CodeMsgMap[CodeOK], data)
}

// Error 失败响应（可以传自定义 msg 覆盖默认）
func Error(code int, customMsg string) Resp {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	return New(code, msg, struct{}{})
}

// ErrorKind 带业务错误类型的失败响应
func ErrorKind(code int, kind, customMsg string) Resp {
	r := Error(code, customMsg)
	r.Kind = kind
	return r
}

// Page 列表统一外形
type Page[T any] struct {
	List   []T   `json:"list"`
	Total  int64 `json:"total"`
	Offset int   `json:"offset"`
	Limit  int   `json:"limit"`
}
