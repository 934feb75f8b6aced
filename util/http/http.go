package http

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/http.go -package=mocks . IClient
type IClient interface {
	DoHTTPRequest(ctx context.Context, requestParam *RequestParam) error
}

// RequestParam 一次请求的参数
//
// Body 支持 nil、io.Reader、[]byte，传输的都是图片等二进制内容。
// Response 非 nil 时保存原始响应体。
type RequestParam struct {
	RequestURI string
	Method     string
	Header     map[string]string
	Body       interface{}
	Response   *[]byte

	Timeout time.Duration
	// MaxBodyBytes 响应体上限，0 表示不限制
	MaxBodyBytes int64
}
