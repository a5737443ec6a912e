package version

import "fmt"

// Name 是程序名，同时用于默认缓存目录与 User-Agent。
const Name = "econfetch"

// Version/Commit 在构建时通过 -ldflags 注入。
var (
	Version = "0.1.0"
	Commit  = "dev"
)

// Full 返回 CLI -version 输出。
func Full() string {
	return fmt.Sprintf("%s %s (%s)", Name, Version, Commit)
}

// UserAgent 返回未配置 UserAgent 时使用的默认请求头值。
func UserAgent() string {
	return Name + "/" + Version
}
