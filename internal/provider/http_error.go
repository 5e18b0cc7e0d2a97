package provider

import (
	"fmt"
	"strings"
)

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}

// TransportError 表示请求没有拿到完整响应（超时、DNS、连接被重置、读 body 失败等）。
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	if e == nil || e.Err == nil {
		return "transport error"
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UnresolvedPlatformError 表示平台标识不在 registry 中（仅 strict 策略下返回）。
type UnresolvedPlatformError struct {
	Identifier string
}

func (e *UnresolvedPlatformError) Error() string {
	return fmt.Sprintf("未知平台：%q", e.Identifier)
}
