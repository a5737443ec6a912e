package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultModule 是未声明 Module 时使用的通用下载模块。
const DefaultModule = "generic"

var supportedModules = map[string]struct{}{
	"generic": {},
	"fred":    {},
	"alfred":  {},
	"bls":     {},
}

const supportedModuleList = "generic|fred|alfred|bls"

// 新鲜度检查策略，与 fetch 包中的 CheckMode 取值保持一致。
const (
	CheckSize     = "size"
	CheckModified = "modified"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "必须大于 0")
	}
	if strings.ContainsAny(g.AppName, `/\`) {
		return newFieldError("Global.AppName", "不允许包含路径分隔符")
	}

	seenNames := map[string]struct{}{}
	for i := range c.Sources {
		src := &c.Sources[i]
		if src.Name == "" {
			return newFieldError("Source[].Name", "不能为空")
		}
		key := strings.ToLower(src.Name)
		if _, exists := seenNames[key]; exists {
			return newFieldError(sourceField(src.Name, "Name"), "重复")
		}
		seenNames[key] = struct{}{}

		module := strings.ToLower(strings.TrimSpace(src.Module))
		if module == "" {
			module = DefaultModule
		}
		if _, ok := supportedModules[module]; !ok {
			return newFieldError(sourceField(src.Name, "Module"), "仅支持 "+supportedModuleList)
		}
		src.Module = module

		if err := validateSourceURL(src.URL); err != nil {
			return fmt.Errorf("%s: %w", sourceField(src.Name, "URL"), err)
		}

		switch strings.ToLower(strings.TrimSpace(src.Check)) {
		case "":
		case CheckSize, CheckModified:
			src.Check = strings.ToLower(strings.TrimSpace(src.Check))
		default:
			return newFieldError(sourceField(src.Name, "Check"), "仅支持 size/modified")
		}

		if strings.ContainsAny(src.Subfolder, `/\`) || src.Subfolder == ".." {
			return newFieldError(sourceField(src.Name, "Subfolder"), "只能是单级目录名")
		}
	}

	return nil
}

func validateSourceURL(raw string) error {
	if raw == "" {
		return errors.New("缺少下载地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，地址: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("地址缺少 Host: %s", raw)
	}
	return nil
}
