package fetch

import (
	"fmt"
	"strings"
)

// CheckMode 选择判断本地缓存是否最新的方式，每次调用只生效一种。
type CheckMode string

const (
	// CheckSize 比较远端 Content-Length 与本地文件大小。
	CheckSize CheckMode = "size"
	// CheckModified 比较远端 Last-Modified 与 .meta 中保存的令牌。
	CheckModified CheckMode = "modified"
)

// ParseCheckMode 解析配置中的策略名，空字符串回退为 size。
func ParseCheckMode(raw string) (CheckMode, error) {
	switch CheckMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", CheckSize:
		return CheckSize, nil
	case CheckModified:
		return CheckModified, nil
	default:
		return "", fmt.Errorf("unsupported check mode: %q", raw)
	}
}

// Decision 是新鲜度检查的结论。
type Decision string

const (
	DecisionUpToDate      Decision = "up_to_date"
	DecisionNeedsDownload Decision = "needs_download"
)

// localState 汇总本地缓存的实时状态：文件大小从文件系统读取，令牌从 .meta 原样读取。
type localState struct {
	exists   bool
	size     int64
	hasToken bool
	token    string
}

// decide 只有在所有需要的值都已知且一致时才判定为最新，任何缺失都倾向于重新下载。
func decide(check CheckMode, probe Probe, local localState) Decision {
	if probe.Err != nil {
		return DecisionNeedsDownload
	}

	switch check {
	case CheckSize:
		if local.exists && probe.ContentLength >= 0 && probe.ContentLength == local.size {
			return DecisionUpToDate
		}
	case CheckModified:
		if local.exists && probe.LastModified != "" && local.hasToken && probe.LastModified == local.token {
			return DecisionUpToDate
		}
	}
	return DecisionNeedsDownload
}
