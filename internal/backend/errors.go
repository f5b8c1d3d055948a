package backend

import (
	"errors"
	"fmt"
)

// APIError 后端返回的业务错误。HTTP 传输成功但响应体带 error 字段时
// 同样走这条路径，调用方不需要区分这两种来源。
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: %s (status %d)", e.Message, e.StatusCode)
}

// IsAPIError 判断 err 链上是否有后端业务错误，并取出它。
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
