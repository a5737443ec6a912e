package sourcemodule

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/econfetch/econfetch/internal/fetch"
)

const defaultModuleKey = "generic"

var globalRegistry = newRegistry()

// registry 是进程内的模块表，只在 init 阶段写入，之后以读为主。
type registry struct {
	mu    sync.RWMutex
	byKey map[string]ModuleMetadata
}

func newRegistry() *registry {
	return &registry{byKey: make(map[string]ModuleMetadata)}
}

// Register 将模块元数据加入全局注册表，键忽略大小写，重复键返回错误。
func Register(meta ModuleMetadata) error {
	return globalRegistry.add(meta)
}

// MustRegister 供模块 init() 调用，注册失败直接 panic。
func MustRegister(meta ModuleMetadata) {
	if err := Register(meta); err != nil {
		panic(err)
	}
}

// Resolve 返回指定键的模块元数据。
func Resolve(key string) (ModuleMetadata, bool) {
	return globalRegistry.get(key)
}

// List 返回按键排序的模块元数据列表。
func List() []ModuleMetadata {
	return globalRegistry.sorted()
}

func moduleKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// add 规范化元数据：键转小写、空策略补为 size、Headers 复制一份避免调用方后续修改。
func (r *registry) add(meta ModuleMetadata) error {
	key := moduleKey(meta.Key)
	if key == "" {
		return fmt.Errorf("module key is required")
	}
	check, err := fetch.ParseCheckMode(string(meta.Check))
	if err != nil {
		return fmt.Errorf("module %s: %w", key, err)
	}
	if strings.ContainsAny(meta.Subfolder, `/\`) {
		return fmt.Errorf("module %s: subfolder must be a single directory name", key)
	}
	meta.Key = key
	meta.Check = check
	meta.Headers = cloneHeaders(meta.Headers)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byKey[key]; dup {
		return fmt.Errorf("module %s already registered", key)
	}
	r.byKey[key] = meta
	return nil
}

func (r *registry) get(key string) (ModuleMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.byKey[moduleKey(key)]
	if ok {
		meta.Headers = cloneHeaders(meta.Headers)
	}
	return meta, ok
}

func (r *registry) sorted() []ModuleMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.byKey) == 0 {
		return nil
	}
	out := make([]ModuleMetadata, 0, len(r.byKey))
	for _, meta := range r.byKey {
		meta.Headers = cloneHeaders(meta.Headers)
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
