package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Probe 是一次 HEAD 探测的临时结果，不会被持久化。
// ContentLength 为 -1 表示未知；Err 非空表示探测失败，仅作参考。
type Probe struct {
	StatusCode    int
	ContentLength int64
	LastModified  string
	Err           error
}

// probe 发送 HEAD 请求。任何失败都记录在 Probe.Err 中而不是返回 error。
func (f *Fetcher) probe(ctx context.Context, req Request) Probe {
	result := Probe{ContentLength: -1}

	httpReq, err := f.newRequest(ctx, http.MethodHead, req)
	if err != nil {
		result.Err = err
		return result
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		result.Err = err
		return result
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	result.StatusCode = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result.Err = fmt.Errorf("unexpected probe status %d", resp.StatusCode)
		return result
	}

	result.ContentLength = parseContentLength(resp)
	result.LastModified = resp.Header.Get("Last-Modified")
	return result
}

// parseContentLength 优先读取原始头部，缺失时退回 http.Response 解析值，无法解析视为未知。
func parseContentLength(resp *http.Response) int64 {
	raw := strings.TrimSpace(resp.Header.Get("Content-Length"))
	if raw == "" {
		if resp.ContentLength >= 0 {
			return resp.ContentLength
		}
		return -1
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}
