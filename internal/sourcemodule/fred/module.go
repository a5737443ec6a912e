// Package fred 描述 FRED/ALFRED 数据源模块的默认策略，并提供基于缓存下载器的观测值客户端。
package fred

import (
	"github.com/econfetch/econfetch/internal/fetch"
	"github.com/econfetch/econfetch/internal/sourcemodule"
)

const (
	// Subfolder 是 FRED 文件的缓存子目录。
	Subfolder = "fred"
	// ALFREDSubfolder 是 ALFRED 历史版本文件的缓存子目录。
	ALFREDSubfolder = "alfred"
)

// FRED 的 graph CSV 带 Last-Modified，适合按修改时间判断新鲜度。
func init() {
	sourcemodule.MustRegister(sourcemodule.ModuleMetadata{
		Key:         "fred",
		Description: "FRED series observations (API JSON or graph CSV)",
		Subfolder:   Subfolder,
		Check:       fetch.CheckModified,
	})
	sourcemodule.MustRegister(sourcemodule.ModuleMetadata{
		Key:         "alfred",
		Description: "ALFRED vintage observations for revision analysis",
		Subfolder:   ALFREDSubfolder,
		Check:       fetch.CheckModified,
	})
}
