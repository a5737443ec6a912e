// Package bls 提供 BLS QCEW（Quarterly Census of Employment and Wages）数据源模块与客户端。
package bls

import (
	"github.com/econfetch/econfetch/internal/fetch"
	"github.com/econfetch/econfetch/internal/sourcemodule"
)

// Subfolder 是 BLS 文件的缓存子目录。
const Subfolder = "bls"

// BrowserHeaders 是访问 data.bls.gov 时附带的请求头；缺少它们时站点会直接返回 403。
var BrowserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	"Accept":          "text/csv,application/zip,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
}

func init() {
	sourcemodule.MustRegister(sourcemodule.ModuleMetadata{
		Key:         "bls",
		Description: "BLS QCEW open data slices and annual single files",
		Subfolder:   Subfolder,
		Check:       fetch.CheckSize,
		Headers:     BrowserHeaders,
	})
}
