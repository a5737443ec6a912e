package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// fredKeyEnv 允许通过环境变量注入 FRED API Key，避免把密钥写进配置文件。
const fredKeyEnv = "ECONFETCH_FRED_API_KEY"

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
// API Key 与缓存根目录只在这里解析一次，之后通过构造函数向下传递。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)
	if err := v.BindEnv("FREDAPIKey", fredKeyEnv); err != nil {
		return nil, fmt.Errorf("绑定环境变量失败: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	for i := range cfg.Sources {
		applySourceDefaults(&cfg.Sources[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Global.CacheRoot != "" {
		absRoot, err := filepath.Abs(cfg.Global.CacheRoot)
		if err != nil {
			return nil, fmt.Errorf("无法解析缓存目录: %w", err)
		}
		cfg.Global.CacheRoot = absRoot
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("AppName", "econfetch")
	v.SetDefault("CacheRoot", "")
	v.SetDefault("UpstreamTimeout", "30s")
	v.SetDefault("RepairCollisions", true)
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	if strings.TrimSpace(g.AppName) == "" {
		g.AppName = "econfetch"
	}
	if g.UpstreamTimeout.DurationValue() == 0 {
		g.UpstreamTimeout = Duration(30 * time.Second)
	}
	g.FREDAPIKey = strings.TrimSpace(g.FREDAPIKey)
}

func applySourceDefaults(s *SourceConfig) {
	s.Name = strings.TrimSpace(s.Name)
	if module := strings.ToLower(strings.TrimSpace(s.Module)); module != "" {
		s.Module = module
	} else {
		s.Module = DefaultModule
	}
	s.Check = strings.ToLower(strings.TrimSpace(s.Check))
	s.Schedule = strings.TrimSpace(s.Schedule)
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
