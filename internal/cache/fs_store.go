package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// NewStore 构建磁盘缓存实例。路径由 Resolver 决定，Store 只负责文件层面的读写，整站复用一份实例。
func NewStore() Store {
	return &fileStore{
		locks: make(map[string]*entryLock),
	}
}

// fileStore 通过 entryLock 避免同一进程内对同一路径的并发写入。
type fileStore struct {
	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (s *fileStore) Stat(ctx context.Context, filePath string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}

	return &Entry{
		FilePath:  filePath,
		MetaPath:  MetaPathFor(filePath),
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}, nil
}

func (s *fileStore) Open(ctx context.Context, filePath string) (*ReadResult, error) {
	entry, err := s.Stat(ctx, filePath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &ReadResult{
		Entry:  *entry,
		Reader: f,
	}, nil
}

func (s *fileStore) PrepareTarget(ctx context.Context, filePath string, repair bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	repaired := false
	info, err := os.Lstat(filePath)
	switch {
	case err == nil && info.IsDir():
		if !repair {
			return false, fmt.Errorf("%w: %s", ErrPathCollision, filePath)
		}
		if err := os.RemoveAll(filePath); err != nil {
			return false, fmt.Errorf("remove colliding directory: %w", err)
		}
		repaired = true
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return repaired, fmt.Errorf("create cache directory: %w", err)
	}
	return repaired, nil
}

func (s *fileStore) Write(ctx context.Context, filePath string, body io.Reader, opts WriteOptions) (*Entry, error) {
	unlock := s.lockEntry(filePath)
	defer unlock()

	written, err := writeAtomic(ctx, filePath, body)
	if err != nil {
		return nil, err
	}

	modTime := opts.ModTime
	if modTime.IsZero() {
		modTime = time.Now().UTC()
	}
	if err := os.Chtimes(filePath, modTime, modTime); err != nil {
		return nil, err
	}

	return &Entry{
		FilePath:  filePath,
		MetaPath:  MetaPathFor(filePath),
		SizeBytes: written,
		ModTime:   modTime,
	}, nil
}

func (s *fileStore) ReadToken(ctx context.Context, metaPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(metaPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}
	return string(data), nil
}

func (s *fileStore) WriteToken(ctx context.Context, metaPath string, token string) error {
	unlock := s.lockEntry(metaPath)
	defer unlock()

	_, err := writeAtomic(ctx, metaPath, bytes.NewReader([]byte(token)))
	return err
}

func (s *fileStore) lockEntry(key string) func() {
	s.mu.Lock()
	lock := s.locks[key]
	if lock == nil {
		lock = &entryLock{}
		s.locks[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// writeAtomic 先写入同目录下的临时文件再 rename，失败时原文件保持不变。
func writeAtomic(ctx context.Context, filePath string, body io.Reader) (int64, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	tempFile, err := os.CreateTemp(dir, ".econfetch-*")
	if err != nil {
		return 0, err
	}
	tempName := tempFile.Name()

	written, err := copyWithContext(ctx, tempFile, body)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return written, err
	}

	if err := os.Rename(tempName, filePath); err != nil {
		os.Remove(tempName)
		return written, err
	}
	return written, nil
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}
