package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fixturePath 指向 testdata 下的样例配置。
func fixturePath(name string) string {
	return filepath.Join("testdata", name)
}

// writeConfig 把 TOML 文本写入临时目录并返回路径，首尾空白会被去掉。
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "econfetch.toml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("写入临时配置失败: %v", err)
	}
	return path
}
