package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/econfetch/econfetch/internal/config"
	"github.com/econfetch/econfetch/internal/fetch"
	"github.com/econfetch/econfetch/internal/sourcemodule"
)

// SourceRoute 将 Source 配置与派生属性（模块元数据、合并后的下载请求）聚合在一起，
// 供 HTTP 层和诊断接口直接复用，避免每次请求重复解析配置。
type SourceRoute struct {
	// Config 是 config.toml 中 [[Source]] 的副本。
	Config config.SourceConfig
	// ModuleKey/Module 记录该数据源使用的模块。
	ModuleKey string
	Module    sourcemodule.ModuleMetadata
	// Request 是模块默认值与 Source 覆盖合并后的下载请求。
	Request fetch.Request
}

// SourceRegistry 提供按名称（忽略大小写）查询 SourceRoute 的能力。
type SourceRegistry struct {
	routes  map[string]*SourceRoute
	ordered []*SourceRoute
}

// NewSourceRegistry 根据配置构建名称映射。调用方应在启动阶段创建一次并复用。
func NewSourceRegistry(cfg *config.Config) (*SourceRegistry, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	registry := &SourceRegistry{
		routes: make(map[string]*SourceRoute, len(cfg.Sources)),
	}

	for _, src := range cfg.Sources {
		key := normalizeName(src.Name)
		if key == "" {
			return nil, errors.New("source name is required")
		}
		if _, exists := registry.routes[key]; exists {
			return nil, fmt.Errorf("duplicate source name detected for %s", src.Name)
		}

		route, err := buildSourceRoute(src)
		if err != nil {
			return nil, err
		}
		registry.routes[key] = route
		registry.ordered = append(registry.ordered, route)
	}

	return registry, nil
}

// Lookup 根据名称查找 SourceRoute。
func (r *SourceRegistry) Lookup(name string) (*SourceRoute, bool) {
	if r == nil {
		return nil, false
	}
	route, ok := r.routes[normalizeName(name)]
	return route, ok
}

// List 按配置顺序返回 SourceRoute 副本，用于 /-/sources 输出。
func (r *SourceRegistry) List() []SourceRoute {
	if r == nil || len(r.ordered) == 0 {
		return nil
	}
	result := make([]SourceRoute, len(r.ordered))
	for i, route := range r.ordered {
		result[i] = *route
	}
	return result
}

// Len 返回注册的数据源数量。
func (r *SourceRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.ordered)
}

func buildSourceRoute(src config.SourceConfig) (*SourceRoute, error) {
	meta, err := moduleMetadataForSource(src)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", src.Name, err)
	}
	req, err := sourcemodule.BuildRequest(src)
	if err != nil {
		return nil, err
	}
	return &SourceRoute{
		Config:    src,
		ModuleKey: meta.Key,
		Module:    meta,
		Request:   req,
	}, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
