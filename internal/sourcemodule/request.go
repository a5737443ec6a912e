package sourcemodule

import (
	"fmt"
	"strings"

	"github.com/econfetch/econfetch/internal/config"
	"github.com/econfetch/econfetch/internal/fetch"
)

// BuildRequest 将模块默认值与 [[Source]] 配置合并：Source 中显式声明的字段优先，
// Headers 按键合并且 Source 覆盖模块默认值。
func BuildRequest(src config.SourceConfig) (fetch.Request, error) {
	key := src.Module
	if strings.TrimSpace(key) == "" {
		key = DefaultModuleKey()
	}
	meta, ok := Resolve(key)
	if !ok {
		return fetch.Request{}, fmt.Errorf("source %s: module %s is not registered", src.Name, key)
	}

	check := meta.Check
	if src.Check != "" {
		parsed, err := fetch.ParseCheckMode(src.Check)
		if err != nil {
			return fetch.Request{}, fmt.Errorf("source %s: %w", src.Name, err)
		}
		check = parsed
	}

	subfolder := meta.Subfolder
	if src.Subfolder != "" {
		subfolder = src.Subfolder
	}

	return fetch.Request{
		Source:      src.Name,
		URL:         src.URL,
		Destination: src.Destination,
		Subfolder:   subfolder,
		Check:       check,
		Headers:     MergeHeaders(meta.Headers, src.Headers),
	}, nil
}

// MergeHeaders 合并两组请求头，键按 HTTP 规范大小写不敏感，override 优先。
func MergeHeaders(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	merged := make(map[string]string, len(base)+len(override))
	index := make(map[string]string, len(base)+len(override))
	put := func(key, value string) {
		lower := strings.ToLower(key)
		if prev, ok := index[lower]; ok {
			delete(merged, prev)
		}
		index[lower] = key
		merged[key] = value
	}
	for key, value := range base {
		put(key, value)
	}
	for key, value := range override {
		put(key, value)
	}
	return merged
}

func cloneHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for key, value := range headers {
		out[key] = value
	}
	return out
}
