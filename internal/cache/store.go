package cache

import (
	"context"
	"errors"
	"io"
	"time"
)

// MetaSuffix 是元数据文件相对正文文件追加的后缀。
const MetaSuffix = ".meta"

// Store 负责管理磁盘缓存的读写。磁盘布局遵循：
//
//	<CacheRoot>/[subfolder]/<name>        # 实际正文
//	<CacheRoot>/[subfolder]/<name>.meta   # Last-Modified 令牌（仅 modified 策略）
//
// 正文大小始终从文件系统实时读取，不做额外缓存。
type Store interface {
	// Stat 返回正文文件的实时信息。文件不存在或被目录占用时返回 ErrNotFound。
	Stat(ctx context.Context, filePath string) (*Entry, error)

	// Open 返回一个可流式读取的缓存条目，供 HTTP 层直接回传。
	Open(ctx context.Context, filePath string) (*ReadResult, error)

	// PrepareTarget 确保父目录存在；若目标路径被目录占用，repair 为 true 时递归删除该目录
	// 并返回 repaired=true，否则返回 ErrPathCollision。
	PrepareTarget(ctx context.Context, filePath string, repair bool) (repaired bool, err error)

	// Write 将下载内容写入正文文件。实现需通过临时文件 + rename 保证写入原子性，
	// 失败时清理临时文件且不触碰原有正文。
	Write(ctx context.Context, filePath string, body io.Reader, opts WriteOptions) (*Entry, error)

	// ReadToken 原样读取元数据文件内容，不做任何解析或规范化。不存在时返回 ErrNotFound。
	ReadToken(ctx context.Context, metaPath string) (string, error)

	// WriteToken 原样覆盖元数据文件。
	WriteToken(ctx context.Context, metaPath string, token string) error
}

// WriteOptions 控制写入过程中的可选属性。
type WriteOptions struct {
	ModTime time.Time
}

// Paths 描述一个缓存条目的正文路径与元数据路径。
type Paths struct {
	Local string `json:"local"`
	Meta  string `json:"meta"`
}

// Entry 表示一个已落盘的缓存条目，包含绝对文件路径及文件信息。
type Entry struct {
	FilePath  string    `json:"file_path"`
	MetaPath  string    `json:"meta_path"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

// ReadResult 组合 Entry 与正文 Reader，便于 HTTP 层直接将 Body 流式返回。
type ReadResult struct {
	Entry  Entry
	Reader io.ReadSeekCloser
}

// ErrNotFound 表示缓存不存在。
var ErrNotFound = errors.New("cache entry not found")

// ErrPathCollision 表示目标文件路径被一个目录占用且未允许自动修复。
var ErrPathCollision = errors.New("cache path occupied by a directory")

// MetaPathFor 返回正文文件对应的元数据文件路径。
func MetaPathFor(localPath string) string {
	return localPath + MetaSuffix
}
