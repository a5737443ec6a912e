package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述全局运行时行为，所有 Source 共享同一份参数。
type GlobalConfig struct {
	ListenPort       int      `mapstructure:"ListenPort"`
	LogLevel         string   `mapstructure:"LogLevel"`
	LogFilePath      string   `mapstructure:"LogFilePath"`
	LogMaxSize       int      `mapstructure:"LogMaxSize"`
	LogMaxBackups    int      `mapstructure:"LogMaxBackups"`
	LogCompress      bool     `mapstructure:"LogCompress"`
	AppName          string   `mapstructure:"AppName"`
	CacheRoot        string   `mapstructure:"CacheRoot"`
	UpstreamTimeout  Duration `mapstructure:"UpstreamTimeout"`
	RepairCollisions bool     `mapstructure:"RepairCollisions"`
	FREDAPIKey       string   `mapstructure:"FREDAPIKey"`
	UserAgent        string   `mapstructure:"UserAgent"`
}

// SourceConfig 描述一个需要缓存的远端文件，以及下载与新鲜度检查方式。
type SourceConfig struct {
	Name        string            `mapstructure:"Name"`
	Module      string            `mapstructure:"Module"`
	URL         string            `mapstructure:"URL"`
	Destination string            `mapstructure:"Destination"`
	Subfolder   string            `mapstructure:"Subfolder"`
	Check       string            `mapstructure:"Check"`
	Schedule    string            `mapstructure:"Schedule"`
	Headers     map[string]string `mapstructure:"Headers"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global  GlobalConfig   `mapstructure:",squash"`
	Sources []SourceConfig `mapstructure:"Source"`
}

// HasFREDKey 表示是否配置了 FRED API Key。
func (g GlobalConfig) HasFREDKey() bool {
	return strings.TrimSpace(g.FREDAPIKey) != ""
}

// Source 按名称查找 Source 配置，名称大小写不敏感。
func (c *Config) Source(name string) (SourceConfig, bool) {
	if c == nil {
		return SourceConfig{}, false
	}
	key := strings.ToLower(strings.TrimSpace(name))
	for _, src := range c.Sources {
		if strings.ToLower(src.Name) == key {
			return src, true
		}
	}
	return SourceConfig{}, false
}

// SourceNames 返回所有 Source 名称，顺序与配置文件一致。
func SourceNames(sources []SourceConfig) []string {
	if len(sources) == 0 {
		return nil
	}
	result := make([]string, len(sources))
	for i, src := range sources {
		result[i] = src.Name
	}
	return result
}

// ScheduledCount 统计配置了 Schedule 的 Source 数量，供启动日志使用。
func ScheduledCount(sources []SourceConfig) int {
	count := 0
	for _, src := range sources {
		if strings.TrimSpace(src.Schedule) != "" {
			count++
		}
	}
	return count
}
