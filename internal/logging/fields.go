package logging

import (
	"net/url"

	"github.com/sirupsen/logrus"
)

// redactedParams 列出日志中需要脱敏的查询参数。
var redactedParams = []string{"api_key", "registrationkey"}

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// FetchFields 提供 source/url/check 字段，供下载与刷新日志复用，URL 中的密钥会被脱敏。
func FetchFields(source, rawURL, check string) logrus.Fields {
	fields := logrus.Fields{
		"url":   RedactURL(rawURL),
		"check": check,
	}
	if source != "" {
		fields["source"] = source
	}
	return fields
}

// RedactURL 将 api_key 等敏感查询参数替换为 REDACTED，解析失败时原样返回。
func RedactURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.RawQuery == "" {
		return rawURL
	}
	query := parsed.Query()
	changed := false
	for _, key := range redactedParams {
		if query.Has(key) {
			query.Set(key, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return rawURL
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
