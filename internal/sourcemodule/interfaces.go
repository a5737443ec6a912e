package sourcemodule

import (
	"github.com/econfetch/econfetch/internal/fetch"
)

// ModuleMetadata 记录一个数据源模块的静态信息，供请求构建和诊断端使用。
type ModuleMetadata struct {
	Key         string
	Description string
	// Subfolder 是该模块默认使用的缓存子目录，Source 未声明时生效。
	Subfolder string
	// Check 是默认新鲜度策略。
	Check fetch.CheckMode
	// Headers 是默认附加的请求头，某些站点（例如 BLS）需要浏览器风格的头部才会放行。
	Headers map[string]string
}

// DefaultModuleKey 返回内置通用模块的键值。
func DefaultModuleKey() string {
	return defaultModuleKey
}

func init() {
	MustRegister(ModuleMetadata{
		Key:         defaultModuleKey,
		Description: "Plain URL download cached under the cache root",
		Check:       fetch.CheckSize,
	})
}
