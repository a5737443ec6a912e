package fetch

import (
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// Shared HTTP transport tunings，复用长连接并集中配置超时。
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   16,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// NewHTTPClient 返回共享 http.Client，用于所有探测与下载请求。超时策略完全交给 client。
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: defaultTransport.Clone(),
	}
}

// hopByHopHeaders 定义 RFC 7230 中逐跳使用、不应由调用方注入的头部。
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
	"Proxy-Connection":    {}, // 非标准字段，但部分代理仍使用
}

// ApplyHeaders 将调用方提供的额外请求头写入 dst，自动忽略 hop-by-hop 字段与空键。
func ApplyHeaders(dst http.Header, extra map[string]string) {
	for key, value := range extra {
		key = strings.TrimSpace(key)
		if key == "" || IsHopByHopHeader(key) {
			continue
		}
		dst.Set(key, value)
	}
}

// IsHopByHopHeader reports whether the header is connection-scoped.
func IsHopByHopHeader(key string) bool {
	canonical := textproto.CanonicalMIMEHeaderKey(key)
	_, ok := hopByHopHeaders[canonical]
	return ok
}
