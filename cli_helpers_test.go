package main

import (
	"bytes"
	"path/filepath"
	"testing"
)

// cliOutput 收集 run() 写出的标准输出与标准错误。
type cliOutput struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
}

// captureCLI 在测试期间把 stdOut/stdErr 指向内存缓冲，结束后恢复。
func captureCLI(t *testing.T) *cliOutput {
	t.Helper()
	out := &cliOutput{}
	prevOut, prevErr := stdOut, stdErr
	stdOut, stdErr = &out.stdout, &out.stderr
	t.Cleanup(func() {
		stdOut, stdErr = prevOut, prevErr
	})
	return out
}

// configFixture 返回 internal/config/testdata 下的样例配置。go test 以包目录为工作目录，main 包即仓库根。
func configFixture(t *testing.T, name string) string {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("internal", "config", "testdata", name))
	if err != nil {
		t.Fatalf("无法定位配置样例 %s: %v", name, err)
	}
	return path
}
