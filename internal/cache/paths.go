package cache

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidURL 表示无法从 URL 推导出缓存文件名。
var ErrInvalidURL = errors.New("cannot derive cache file name from url")

// Resolver 将远端 URL 映射为 <root>/[subfolder]/<name> 形式的本地路径。
type Resolver struct {
	root string
}

// DefaultRoot 按操作系统约定返回当前用户的应用缓存目录，例如 ~/.cache/<appName>。
func DefaultRoot(appName string) (string, error) {
	if strings.TrimSpace(appName) == "" {
		return "", errors.New("app name required")
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve user cache dir: %w", err)
	}
	return filepath.Join(base, appName), nil
}

// NewResolver 以 root 为缓存根目录构建 Resolver；root 为空时回退到 DefaultRoot(appName)。
func NewResolver(root, appName string) (*Resolver, error) {
	if root == "" {
		defaultRoot, err := DefaultRoot(appName)
		if err != nil {
			return nil, err
		}
		root = defaultRoot
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve cache root: %w", err)
	}
	return &Resolver{root: abs}, nil
}

// Root 返回解析后的缓存根目录。
func (r *Resolver) Root() string {
	return r.root
}

// Dir 返回 root/[subfolder] 并确保目录存在，可重复调用。
func (r *Resolver) Dir(subfolder string) (string, error) {
	dir, err := r.dirPath(subfolder)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create cache directory: %w", err)
	}
	return dir, nil
}

// Locate 计算正文与元数据路径但不触碰文件系统：显式 destination 原样使用，否则取 URL 最后一段路径作为文件名。
func (r *Resolver) Locate(rawURL, destination, subfolder string) (Paths, error) {
	local := destination
	if local == "" {
		name, err := FileNameFromURL(rawURL)
		if err != nil {
			return Paths{}, err
		}
		dir, err := r.dirPath(subfolder)
		if err != nil {
			return Paths{}, err
		}
		local = filepath.Join(dir, name)
	}
	return Paths{Local: local, Meta: MetaPathFor(local)}, nil
}

// Resolve 与 Locate 相同，返回前确保正文文件的父目录存在。
func (r *Resolver) Resolve(rawURL, destination, subfolder string) (Paths, error) {
	paths, err := r.Locate(rawURL, destination, subfolder)
	if err != nil {
		return Paths{}, err
	}
	if err := os.MkdirAll(filepath.Dir(paths.Local), 0o755); err != nil {
		return Paths{}, fmt.Errorf("create cache directory: %w", err)
	}
	return paths, nil
}

func (r *Resolver) dirPath(subfolder string) (string, error) {
	subfolder = strings.TrimSpace(subfolder)
	if subfolder == "" {
		return r.root, nil
	}
	if subfolder == "." || subfolder == ".." || strings.ContainsAny(subfolder, `/\`) {
		return "", fmt.Errorf("invalid cache subfolder: %q", subfolder)
	}
	return filepath.Join(r.root, subfolder), nil
}

// FileNameFromURL 返回 URL 路径的最后一段，查询参数不参与命名。
func FileNameFromURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	name := path.Base(parsed.Path)
	switch name {
	case "", ".", "/", "..":
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}
	return name, nil
}
