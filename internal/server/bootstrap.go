package server

import (
	"fmt"

	"github.com/econfetch/econfetch/internal/config"
	"github.com/econfetch/econfetch/internal/sourcemodule"

	// 注册内置数据源模块，配置中的 Module 字段依赖它们。
	_ "github.com/econfetch/econfetch/internal/sourcemodule/bls"
	_ "github.com/econfetch/econfetch/internal/sourcemodule/fred"
)

func moduleMetadataForSource(src config.SourceConfig) (sourcemodule.ModuleMetadata, error) {
	key := src.Module
	if key == "" {
		key = sourcemodule.DefaultModuleKey()
	}
	if meta, ok := sourcemodule.Resolve(key); ok {
		return meta, nil
	}
	return sourcemodule.ModuleMetadata{}, fmt.Errorf("module %s is not registered", key)
}
